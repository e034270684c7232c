package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/registryflow/registryflow/internal/model"
	rferrors "github.com/registryflow/registryflow/pkg/errors"
)

const scenarioInput = `License Number,Business Name,License Status,City
1001,Acme Stone,Active,Phoenix
1002,Old Co,Expired,Tucson
,Bad Row,Active,Mesa
`

// memorySink records every call it receives.
type memorySink struct {
	name     string
	mu       sync.Mutex
	opened   bool
	closed   bool
	records  []model.Contractor
	failOn   string
	closeErr error
	onWrite  func()
}

func (s *memorySink) Name() string { return s.name }

func (s *memorySink) Open(ctx context.Context) error {
	s.opened = true
	return nil
}

func (s *memorySink) Write(ctx context.Context, c *model.Contractor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onWrite != nil {
		s.onWrite()
	}
	if s.failOn != "" && c.LicenseNumber == s.failOn {
		return errors.New("disk full")
	}
	s.records = append(s.records, *c)
	return nil
}

func (s *memorySink) Close(ctx context.Context) error {
	s.closed = true
	return s.closeErr
}

func (s *memorySink) Artifacts() []string { return []string{s.name + ".out"} }

type memoryFactory struct {
	mu    sync.Mutex
	sinks map[Strategy]*memorySink
}

func newMemoryFactory(sinks ...*memorySink) *memoryFactory {
	f := &memoryFactory{sinks: make(map[Strategy]*memorySink)}
	for _, s := range sinks {
		f.sinks[Strategy(s.name)] = s
	}
	return f
}

func (f *memoryFactory) NewSink(st Strategy, runID string) (Sink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sinks[st]
	if !ok {
		s = &memorySink{name: string(st)}
		f.sinks[st] = s
	}
	return s, nil
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDriver_Scenario(t *testing.T) {
	input := writeInput(t, scenarioInput)
	sink := &memorySink{name: "jsonl"}
	d := NewDriver(Config{InputPath: input}, newMemoryFactory(sink), nil)

	summary, err := d.Run(context.Background(), StrategyJSONL)
	require.NoError(t, err)
	require.NoError(t, summary.Err())
	require.Len(t, summary.Passes, 1)

	pass := summary.Passes[0]
	assert.Equal(t, StrategyJSONL, pass.Strategy)
	assert.NotEmpty(t, pass.RunID)
	assert.Equal(t, 3, pass.Report.Total)
	assert.Equal(t, 1, pass.Report.Active)
	assert.Zero(t, pass.Report.Errors, "a blank license number is a silent rejection")
	assert.Equal(t, []string{"jsonl.out"}, pass.Artifacts)

	assert.True(t, sink.opened)
	assert.True(t, sink.closed)
	require.Len(t, sink.records, 2, "the driver hands every valid record to the sink")
	assert.Equal(t, "1001", sink.records[0].LicenseNumber)
	assert.Equal(t, "1002", sink.records[1].LicenseNumber)
	assert.Equal(t, model.DefaultState, sink.records[0].State)
}

func TestDriver_RowErrorsDoNotAbort(t *testing.T) {
	input := writeInput(t, "License Number,Business Name,License Status,City\n"+
		"1001,Acme,Active,Phoenix\n"+
		"1002,Short\n"+
		"1003,Beta,Active,Mesa\n")
	errLog := filepath.Join(t.TempDir(), "errors.jsonl")

	d := NewDriver(Config{InputPath: input, ErrorLogPath: errLog}, newMemoryFactory(), nil)
	summary, err := d.Run(context.Background(), StrategyJSONL)
	require.NoError(t, err)
	require.NoError(t, summary.Err())

	pass := summary.Passes[0]
	assert.Equal(t, 3, pass.Report.Total)
	assert.Equal(t, 2, pass.Report.Active)
	require.Len(t, pass.Errors, 1)
	assert.Equal(t, 2, pass.Errors[0].Row)
	assert.Equal(t, 3, pass.Errors[0].Line)
	assert.Equal(t, ErrorTypeShortRow, pass.Errors[0].Type)
	assert.Equal(t, "1002,Short", pass.Errors[0].Raw)
	assert.Equal(t, errLog, pass.ErrorLog)

	records, err := ReadDLQ(errLog)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, pass.RunID, records[0].RunID)
}

func TestDriver_SinkFailureAbortsOnlyItsPass(t *testing.T) {
	input := writeInput(t, scenarioInput)
	failing := &memorySink{name: "sqlite", failOn: "1002"}
	factory := newMemoryFactory(failing)

	d := NewDriver(Config{InputPath: input}, factory, nil)
	summary, err := d.Run(context.Background(), StrategyAll)
	require.NoError(t, err)
	require.Len(t, summary.Passes, 4)

	failed := summary.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, StrategySQLite, failed[0].Strategy)
	assert.True(t, rferrors.IsCode(failed[0].Err, rferrors.CodeWriteFailed))
	assert.Equal(t, 3, rferrors.ExitCode(summary.Err()))
	assert.True(t, failing.closed, "sink is closed on the error path")

	for _, st := range []Strategy{StrategyJSONL, StrategyRegions, StrategySeed} {
		s := factory.sinks[st]
		require.NotNil(t, s, st)
		assert.Len(t, s.records, 2, st)
	}
}

func TestDriver_CloseErrorFailsPass(t *testing.T) {
	input := writeInput(t, scenarioInput)
	sink := &memorySink{name: "regions", closeErr: errors.New("flush failed")}

	d := NewDriver(Config{InputPath: input}, newMemoryFactory(sink), nil)
	summary, err := d.Run(context.Background(), StrategyRegions)
	require.NoError(t, err)
	require.Error(t, summary.Err())
	assert.Contains(t, summary.Err().Error(), "flush failed")
}

func TestDriver_StartupErrors(t *testing.T) {
	dir := t.TempDir()

	d := NewDriver(Config{InputPath: filepath.Join(dir, "missing.csv")}, newMemoryFactory(), nil)
	_, err := d.Run(context.Background(), StrategyAll)
	assert.True(t, rferrors.IsCode(err, rferrors.CodeFileNotFound))
	assert.Contains(t, err.Error(), "file not found")

	noLicense := writeInput(t, "Business Name,City\nAcme,Phoenix\n")
	d = NewDriver(Config{InputPath: noLicense}, newMemoryFactory(), nil)
	_, err = d.Run(context.Background(), StrategyAll)
	assert.True(t, rferrors.IsCode(err, rferrors.CodeMissingColumn))

	empty := writeInput(t, "")
	d = NewDriver(Config{InputPath: empty}, newMemoryFactory(), nil)
	_, err = d.Run(context.Background(), StrategyAll)
	assert.True(t, rferrors.IsCode(err, rferrors.CodeEmptyInput))
}

func TestDriver_Cancellation(t *testing.T) {
	input := writeInput(t, scenarioInput)
	ctx, cancel := context.WithCancel(context.Background())

	sink := &memorySink{name: "jsonl", onWrite: cancel}
	d := NewDriver(Config{InputPath: input}, newMemoryFactory(sink), nil)

	summary, err := d.Run(ctx, StrategyAll)
	require.NoError(t, err)

	for _, p := range summary.Passes {
		assert.True(t, rferrors.IsCode(p.Err, rferrors.CodeCanceled), p.Strategy)
	}
	assert.Len(t, sink.records, 1, "the pass stops after the current line")
	assert.True(t, sink.closed)
	assert.Equal(t, 130, rferrors.ExitCode(summary.Passes[0].Err))
}

func TestDriver_Parallel(t *testing.T) {
	defer goleak.VerifyNone(t)

	input := writeInput(t, scenarioInput)
	factory := newMemoryFactory()

	var mu sync.Mutex
	var progress []Progress
	d := NewDriver(Config{
		InputPath: input,
		Parallel:  true,
		Progress: func(p Progress) {
			mu.Lock()
			progress = append(progress, p)
			mu.Unlock()
		},
	}, factory, nil)

	summary, err := d.Run(context.Background(), StrategyAll)
	require.NoError(t, err)
	require.NoError(t, summary.Err())
	require.Len(t, summary.Passes, 4)

	for i, st := range AllStrategies {
		p := summary.Passes[i]
		assert.Equal(t, st, p.Strategy, "results keep strategy order")
		assert.Equal(t, 3, p.Report.Total)
		assert.Equal(t, 1, p.Report.Active)
	}

	assert.Len(t, progress, 4)
	for _, p := range progress {
		assert.True(t, p.Done)
		assert.Equal(t, 3, p.Rows)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := map[string]Strategy{
		"":        StrategyAll,
		"all":     StrategyAll,
		"JSONL":   StrategyJSONL,
		"sqlite":  StrategySQLite,
		"db":      StrategySQLite,
		"regions": StrategyRegions,
		"seed":    StrategySeed,
		"parquet": StrategyParquet,
	}
	for in, want := range tests {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStrategy("xml")
	assert.Error(t, err)

	assert.Equal(t, AllStrategies, StrategyAll.Expand())
	assert.Equal(t, []Strategy{StrategySeed}, StrategySeed.Expand())
}
