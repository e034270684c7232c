// Package pipeline drives registry conversion passes.
//
// A pass reads the whole input once, normalizes every row and feeds the
// resulting records to one Sink. Running several strategies means several
// independent passes; each pass owns its Stats, its sink and its file
// handles.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/registryflow/registryflow/internal/model"
)

// Sink consumes normalized records and writes one output artifact.
type Sink interface {
	// Name returns the sink identifier (e.g., "jsonl", "sqlite").
	Name() string

	// Open prepares the destination. It is called once before the first Write.
	Open(ctx context.Context) error

	// Write accepts one valid record. Sinks apply their own filters.
	Write(ctx context.Context, c *model.Contractor) error

	// Close flushes pending data and releases resources. It is called
	// exactly once per successful Open, including on error paths.
	Close(ctx context.Context) error

	// Artifacts lists the files the sink produced.
	Artifacts() []string
}

// SinkFactory builds a fresh sink for a strategy.
type SinkFactory interface {
	NewSink(strategy Strategy, runID string) (Sink, error)
}

// SinkFactoryFunc adapts a function to SinkFactory.
type SinkFactoryFunc func(strategy Strategy, runID string) (Sink, error)

// NewSink implements SinkFactory.
func (f SinkFactoryFunc) NewSink(strategy Strategy, runID string) (Sink, error) {
	return f(strategy, runID)
}

// Strategy names one output representation.
type Strategy string

const (
	StrategyJSONL   Strategy = "jsonl"
	StrategySQLite  Strategy = "sqlite"
	StrategyRegions Strategy = "regions"
	StrategySeed    Strategy = "seed"
	StrategyParquet Strategy = "parquet"
	StrategyAll     Strategy = "all"
)

// AllStrategies is the order "all" expands to.
var AllStrategies = []Strategy{StrategyJSONL, StrategySQLite, StrategyRegions, StrategySeed}

// ParseStrategy parses a strategy name. An empty name means "all".
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StrategyAll, nil
	case "db", "snapshot":
		return StrategySQLite, nil
	case StrategyJSONL, StrategySQLite, StrategyRegions, StrategySeed, StrategyParquet, StrategyAll:
		return st, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want jsonl, sqlite, regions, seed, parquet or all)", s)
	}
}

// Expand returns the passes a strategy stands for.
func (s Strategy) Expand() []Strategy {
	if s == StrategyAll {
		out := make([]Strategy, len(AllStrategies))
		copy(out, AllStrategies)
		return out
	}
	return []Strategy{s}
}

// StreamsRecords reports whether the sink writes each record as it arrives,
// so a pass may stop after any line on cancellation.
func (s Strategy) StreamsRecords() bool {
	return s != StrategySQLite
}
