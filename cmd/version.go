package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scenrun/scenrun/internal/build"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), build.Version)
			return nil
		},
	}
}
