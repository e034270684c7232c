package sinks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/registryflow/registryflow/internal/model"
	"github.com/registryflow/registryflow/pkg/pipeline"
)

func contractor(license, name, status, city string) model.Contractor {
	return model.Contractor{
		LicenseNumber: license,
		BusinessName:  name,
		LicenseStatus: status,
		City:          city,
		State:         model.DefaultState,
	}
}

// feed opens s, writes every record and closes it.
func feed(t *testing.T, s pipeline.Sink, records ...model.Contractor) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Open(ctx))
	for i := range records {
		require.NoError(t, s.Write(ctx, &records[i]))
	}
	require.NoError(t, s.Close(ctx))
}

func TestFactory(t *testing.T) {
	f := NewFactory(Options{OutDir: "/tmp/out"}, nil)
	opts := f.Options()
	require.Equal(t, "contractors", opts.Name)
	require.Equal(t, 1000, opts.BatchSize)
	require.Equal(t, 5000, opts.SeedCap)
	require.Equal(t, CompressionNone, opts.Compression)
	require.Equal(t, "/tmp/out/contractors.jsonl", opts.JSONLPath())
	require.Equal(t, "/tmp/out/contractors.db", opts.SnapshotPath())
	require.Equal(t, "/tmp/out/regions", opts.RegionDir())
	require.Equal(t, "/tmp/out/contractors-seed.ts", opts.SeedPath())
	require.Equal(t, "/tmp/out/contractors-errors.jsonl", opts.ErrorLogPath())

	for _, st := range []pipeline.Strategy{
		pipeline.StrategyJSONL,
		pipeline.StrategySQLite,
		pipeline.StrategyRegions,
		pipeline.StrategySeed,
		pipeline.StrategyParquet,
	} {
		s, err := f.NewSink(st, "run-1")
		require.NoError(t, err)
		require.Equal(t, string(st), s.Name())
	}

	_, err := f.NewSink(pipeline.StrategyAll, "run-1")
	require.Error(t, err)
}
