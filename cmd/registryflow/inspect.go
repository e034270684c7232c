package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/registryflow/registryflow/pkg/inspect"
	"github.com/registryflow/registryflow/pkg/tui"
)

var (
	inspectTop  int
	inspectJSON bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [artifact]",
	Short: "Summarise a produced artifact",
	Long: `Summarise a JSONL, Parquet or SQLite artifact: row and active counts,
distinct classes and cities, and the most common of each.

Without an argument the JSONL artifact under the output directory is used.

Examples:
  registryflow inspect
  registryflow inspect output/contractors.db --top 10
  registryflow inspect output/contractors.parquet --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectTop, "top", inspect.DefaultTop, "Number of top classes and cities to list")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print the summary as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := filepath.Join(cfg.Output.Dir, cfg.Output.Name+".jsonl")
	if len(args) == 1 {
		path = args[0]
	}

	summary, err := inspect.Inspect(cmd.Context(), path, inspectTop)
	if err != nil {
		return err
	}

	if inspectJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	out := tui.NewPrinter(cmd.OutOrStdout())
	out.Table(summary.Format+" "+filepath.Base(summary.Path), [][2]string{
		{"rows", fmt.Sprint(summary.Rows)},
		{"active", fmt.Sprint(summary.Active)},
		{"classes", fmt.Sprint(summary.Classes)},
		{"cities", fmt.Sprint(summary.Cities)},
	})
	out.Table("top classes", countRows(summary.TopClasses))
	out.Table("top cities", countRows(summary.TopCities))
	return nil
}

func countRows(counts []inspect.Count) [][2]string {
	rows := make([][2]string, len(counts))
	for i, c := range counts {
		rows[i] = [2]string{c.Value, fmt.Sprint(c.Count)}
	}
	return rows
}
