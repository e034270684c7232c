// Package sinks writes normalized contractor records to the registry's
// output artifacts: a JSON-lines stream, an indexed SQLite snapshot, region
// shards, a seed script and an optional Parquet file.
//
// Every sink implements pipeline.Sink and is built fresh for each pass by
// Factory, so sinks never share file handles.
package sinks

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/registryflow/registryflow/pkg/pipeline"
)

// Options configures where and how sinks write.
type Options struct {
	// OutDir is the directory every artifact is written under.
	OutDir string

	// Name is the base name of the artifacts (e.g., contractors.jsonl).
	Name string

	// BatchSize is the number of rows per snapshot transaction.
	BatchSize int

	// Conflict decides which duplicate license number the snapshot keeps.
	Conflict pipeline.DeduplicationStrategy

	// SeedCap is the maximum number of records embedded in the seed script.
	SeedCap int

	// Compression is the Parquet codec.
	Compression CompressionType

	// SourceName is recorded in generated headers and file metadata.
	SourceName string
}

// DefaultOptions returns the stock output layout.
func DefaultOptions() Options {
	return Options{
		OutDir:      "output",
		Name:        "contractors",
		BatchSize:   1000,
		Conflict:    pipeline.DeduplicationKeepFirst,
		SeedCap:     5000,
		Compression: CompressionSnappy,
	}
}

// JSONLPath returns <out>/<name>.jsonl.
func (o Options) JSONLPath() string { return filepath.Join(o.OutDir, o.Name+".jsonl") }

// SnapshotPath returns <out>/<name>.db.
func (o Options) SnapshotPath() string { return filepath.Join(o.OutDir, o.Name+".db") }

// RegionDir returns <out>/regions.
func (o Options) RegionDir() string { return filepath.Join(o.OutDir, "regions") }

// SeedPath returns <out>/<name>-seed.ts.
func (o Options) SeedPath() string { return filepath.Join(o.OutDir, o.Name+"-seed.ts") }

// ParquetPath returns <out>/<name>.parquet.
func (o Options) ParquetPath() string { return filepath.Join(o.OutDir, o.Name+".parquet") }

// ErrorLogPath returns <out>/<name>-errors.jsonl.
func (o Options) ErrorLogPath() string { return filepath.Join(o.OutDir, o.Name+"-errors.jsonl") }

// Factory builds sinks for pipeline passes.
type Factory struct {
	opts   Options
	logger *zap.Logger
}

// NewFactory creates a Factory. Empty paths and non-positive batch size or
// seed cap fall back to defaults. Compression is used as given, since its
// zero value is CompressionNone.
func NewFactory(opts Options, logger *zap.Logger) *Factory {
	def := DefaultOptions()
	if opts.OutDir == "" {
		opts.OutDir = def.OutDir
	}
	if opts.Name == "" {
		opts.Name = def.Name
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.SeedCap <= 0 {
		opts.SeedCap = def.SeedCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{opts: opts, logger: logger}
}

// Options returns the effective options.
func (f *Factory) Options() Options {
	return f.opts
}

// NewSink implements pipeline.SinkFactory.
func (f *Factory) NewSink(st pipeline.Strategy, runID string) (pipeline.Sink, error) {
	log := f.logger.With(zap.String("sink", string(st)))

	switch st {
	case pipeline.StrategyJSONL:
		return NewJSONLSink(f.opts.JSONLPath()), nil
	case pipeline.StrategySQLite:
		return NewSnapshotSink(f.opts.SnapshotPath(), f.opts.BatchSize, f.opts.Conflict, log), nil
	case pipeline.StrategyRegions:
		return NewRegionSink(f.opts.RegionDir()), nil
	case pipeline.StrategySeed:
		return NewSeedSink(f.opts.SeedPath(), f.opts.SeedCap, f.opts.SourceName), nil
	case pipeline.StrategyParquet:
		return NewParquetSink(f.opts.ParquetPath(), ParquetConfig{
			BatchSize:   f.opts.BatchSize,
			Compression: f.opts.Compression,
			RunID:       runID,
			Source:      f.opts.SourceName,
		}), nil
	default:
		return nil, fmt.Errorf("no sink for strategy %q", st)
	}
}
