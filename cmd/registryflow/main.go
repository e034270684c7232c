// RegistryFlow - contractor registry converter.
// Reads a state contractor-license export and produces JSONL, SQLite,
// per-region JSON, Prisma seed and Parquet artifacts from it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/registryflow/registryflow/pkg/config"
	rferrors "github.com/registryflow/registryflow/pkg/errors"
	"github.com/registryflow/registryflow/pkg/telemetry"
	"github.com/registryflow/registryflow/pkg/tui"
	"github.com/registryflow/registryflow/pkg/validation"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// Global flags
var (
	configFile     string
	verbose        bool
	outDir         string
	outName        string
	batchSize      int
	seedCap        int
	onConflict     string
	parallel       bool
	unescapeQuotes bool
	delimiter      string
	noProgress     bool
	noErrorLog     bool
)

// Run state shared by subcommands, set up in PersistentPreRunE.
var (
	logger   *zap.Logger
	cfg      *config.Config
	shutdown telemetry.Shutdown
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		p := tui.NewPrinter(os.Stderr)
		p.Error(err)
		if verbose {
			p.Stack(err)
		}
		os.Exit(rferrors.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "registryflow",
	Short: "RegistryFlow - convert contractor registry exports",
	Long: `RegistryFlow converts a contractor-license registry export (CSV or XLSX)
into JSONL, an indexed SQLite snapshot, per-region JSON shards, a Prisma
seed script and Parquet.

Configuration is layered: defaults, ~/.registryflow/config.yaml,
./.registryflow.yaml, --config, REGISTRYFLOW_* environment variables
and finally command-line flags.`,
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		mgr := config.NewManager()
		if err := mgr.Load(configFile); err != nil {
			return err
		}
		cfg = mgr.Get()
		applyFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := validation.ValidateCompression(cfg.Parquet.Compression); err != nil {
			return err
		}
		logger.Debug("configuration loaded", zap.Strings("files", mgr.GetPaths()))

		tcfg := telemetry.DefaultConfig(cfg.Telemetry.ServiceName)
		tcfg.Enabled = cfg.Telemetry.Enabled
		tcfg.Endpoint = cfg.Telemetry.Endpoint
		tcfg.Insecure = cfg.Telemetry.Insecure
		tcfg.ServiceVersion = version
		shutdown, err = telemetry.Init(cmd.Context(), tcfg, logger)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if shutdown != nil {
			if err := shutdown(context.WithoutCancel(cmd.Context())); err != nil {
				logger.Warn("telemetry shutdown failed", zap.Error(err))
			}
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (YAML)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVarP(&outDir, "out", "o", "", "Output directory (default \"output\")")
	pf.StringVar(&outName, "name", "", "Artifact base name (default \"contractors\")")
	pf.IntVar(&batchSize, "batch-size", 0, "Rows per snapshot transaction (default 1000)")
	pf.IntVar(&seedCap, "seed-cap", 0, "Maximum records in the seed script (default 5000)")
	pf.StringVar(&onConflict, "on-conflict", "", "Duplicate license policy: ignore or replace")
	pf.BoolVar(&parallel, "parallel", false, "Run passes concurrently")
	pf.BoolVar(&unescapeQuotes, "unescape-quotes", false, `Treat "" inside quotes as a literal quote`)
	pf.StringVar(&delimiter, "delimiter", "", `Field delimiter (single byte or "tab")`)
	pf.BoolVar(&noProgress, "no-progress", false, "Disable progress bars")
	pf.BoolVar(&noErrorLog, "no-error-log", false, "Do not write the row-error log")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(configCmd)
}

// applyFlags overlays explicitly set flags on the loaded configuration.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("out") {
		c.Output.Dir = outDir
	}
	if flags.Changed("name") {
		c.Output.Name = outName
	}
	if flags.Changed("batch-size") {
		c.Snapshot.BatchSize = batchSize
	}
	if flags.Changed("seed-cap") {
		c.Seed.Cap = seedCap
	}
	if flags.Changed("on-conflict") {
		c.Snapshot.OnConflict = onConflict
	}
	if flags.Changed("parallel") {
		c.Run.Parallel = parallel
	}
	if flags.Changed("unescape-quotes") {
		c.Parser.UnescapeQuotes = unescapeQuotes
	}
	if flags.Changed("delimiter") {
		c.Parser.Delimiter = delimiter
	}
	if noProgress {
		c.Run.Progress = false
	}
	if noErrorLog {
		c.Run.ErrorLog = false
	}
}

// requireInput accepts an input file and an optional strategy. A missing
// input prints usage before failing.
func requireInput(cmd *cobra.Command, args []string) error {
	switch {
	case len(args) == 0:
		_ = cmd.Usage()
		return rferrors.New(rferrors.CodeConfig, "missing input file")
	case len(args) > 2:
		_ = cmd.Usage()
		return rferrors.New(rferrors.CodeConfig, "too many arguments").
			WithContext("got", len(args))
	}
	return nil
}
