package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/registryflow/registryflow/pkg/config"
	"github.com/registryflow/registryflow/pkg/parser"
	"github.com/registryflow/registryflow/pkg/pipeline"
	"github.com/registryflow/registryflow/pkg/sinks"
	"github.com/registryflow/registryflow/pkg/tui"
	"github.com/registryflow/registryflow/pkg/validation"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input-file> [strategy]",
	Short: "Convert a registry export",
	Long: `Convert a contractor registry export into one or more artifacts.

Strategies:
  jsonl    active contractors, one JSON object per line
  sqlite   every valid row in an indexed SQLite snapshot
  regions  active contractors sharded into regions/<region>.json
  seed     a Prisma seed script for the first --seed-cap active rows
  parquet  every valid row as Parquet (not part of "all")
  all      jsonl, sqlite, regions and seed (default)

Examples:
  registryflow convert registry.csv
  registryflow convert registry.csv sqlite --batch-size 5000
  registryflow convert registry.xlsx all --parallel --out build`,
	Args: requireInput,
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	var strategyArg string
	if len(args) > 1 {
		strategyArg = args[1]
	}
	strategy, err := pipeline.ParseStrategy(strategyArg)
	if err != nil {
		_ = cmd.Usage()
		return err
	}

	out := tui.NewPrinter(cmd.OutOrStdout())
	driver, size, err := newDriver(cfg, args[0], logger)
	if err != nil {
		return err
	}
	out.Header(version, args[0], size, strategy)

	summary, err := driver.Run(cmd.Context(), strategy)
	if err != nil {
		return err
	}
	out.Summary(summary)
	return summary.Err()
}

// newDriver builds a driver for input from c and returns the input size.
// Header and output checks run later in Driver.Run.
func newDriver(c *config.Config, input string, log *zap.Logger) (*pipeline.Driver, int64, error) {
	size, err := validation.ValidateInputFile(input)
	if err != nil {
		return nil, 0, err
	}

	conflict, err := pipeline.ParseDeduplicationStrategy(c.Snapshot.OnConflict)
	if err != nil {
		return nil, 0, err
	}

	opts := sinks.DefaultOptions()
	opts.OutDir = c.Output.Dir
	opts.Name = c.Output.Name
	opts.BatchSize = c.Snapshot.BatchSize
	opts.Conflict = conflict
	opts.SeedCap = c.Seed.Cap
	opts.Compression = sinks.ParseCompression(c.Parquet.Compression)
	opts.SourceName = filepath.Base(input)

	pcfg := parser.DefaultConfig()
	pcfg.Delimiter = c.Delimiter()
	pcfg.UnescapeQuotes = c.Parser.UnescapeQuotes

	dcfg := pipeline.Config{
		InputPath: input,
		OutputDir: opts.OutDir,
		Parser:    pcfg,
		Parallel:  c.Run.Parallel,
	}
	if c.Run.ErrorLog {
		dcfg.ErrorLogPath = opts.ErrorLogPath()
	}

	// Bars from concurrent passes would overwrite each other.
	if c.Run.Progress && !c.Run.Parallel {
		dcfg.Progress = tui.ProgressReporter(os.Stderr, size)
	}
	return pipeline.NewDriver(dcfg, sinks.NewFactory(opts, log), log), size, nil
}
