package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/registryflow/registryflow/pkg/pipeline"
	"github.com/registryflow/registryflow/pkg/tui"
	"github.com/registryflow/registryflow/pkg/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <input-file> [strategy]",
	Short: "Re-convert whenever the input file changes",
	Long: `Run a conversion, then watch the input file and run it again after
each change settles. Stop with Ctrl+C.

Examples:
  registryflow watch registry.csv
  registryflow watch registry.csv jsonl`,
	Args: requireInput,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	var strategyArg string
	if len(args) > 1 {
		strategyArg = args[1]
	}
	strategy, err := pipeline.ParseStrategy(strategyArg)
	if err != nil {
		_ = cmd.Usage()
		return err
	}

	// A redrawn progress bar would bury the report between runs.
	cfg.Run.Progress = false
	out := tui.NewPrinter(cmd.OutOrStdout())

	convert := func(ctx context.Context) error {
		driver, size, err := newDriver(cfg, args[0], logger)
		if err != nil {
			return err
		}
		out.Header(version, args[0], size, strategy)
		summary, err := driver.Run(ctx, strategy)
		if err != nil {
			return err
		}
		// Failed passes are shown in the summary and do not stop watching.
		out.Summary(summary)
		return nil
	}

	if err := convert(cmd.Context()); err != nil {
		return err
	}

	w, err := watch.NewWatcher(cfg.Watch.Debounce, logger)
	if err != nil {
		return err
	}
	if err := w.Watch(args[0]); err != nil {
		w.Close()
		return err
	}
	w.OnChange = func(ctx context.Context, path string) error {
		return convert(ctx)
	}
	w.OnError = func(path string, err error) {
		out.Error(err)
	}

	out.Info("watching " + args[0] + " (Ctrl+C to stop)")
	err = w.Run(cmd.Context())
	if errors.Is(err, context.Canceled) {
		logger.Info("watch stopped")
		return nil
	}
	return err
}
