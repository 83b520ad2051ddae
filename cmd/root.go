// Package cmd implements the scenrun command line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/scenrun/scenrun/internal/build"
	"github.com/scenrun/scenrun/internal/config"
)

var (
	cfgFile string
	homeDir string

	rootCmd = &cobra.Command{
		Use:           build.Slug,
		Short:         "Scenario runner for payment channel networks.",
		Long:          "Runs YAML scenarios against a set of payment channel nodes and reports the outcome per task.",
		SilenceUsage: true,
	}
)

// Execute runs the CLI. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $SCENRUN_HOME/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "runner home directory (default is ~/.scenrun)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(dryCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(versionCmd())
}

// loadConfig builds the runner configuration from the global flags.
func loadConfig() (*config.Config, error) {
	var opts []config.Option
	if cfgFile != "" {
		opts = append(opts, config.WithConfigFile(cfgFile))
	}
	if homeDir != "" {
		opts = append(opts, config.WithHomeDir(homeDir))
	}
	return config.NewLoader(opts...).Load()
}
