package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/registryflow/registryflow/pkg/config"
	"github.com/registryflow/registryflow/pkg/tui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialise configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Long: `Write the default configuration to path (default ./.registryflow.yaml),
where it is picked up by every later run in that directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ".registryflow.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.Write(config.Default(), path); err != nil {
			return err
		}
		abs, _ := filepath.Abs(path)
		tui.NewPrinter(cmd.OutOrStdout()).Info("wrote " + abs)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
