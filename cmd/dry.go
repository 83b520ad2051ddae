package cmd

import (
	"github.com/spf13/cobra"

	"github.com/scenrun/scenrun/internal/agent"
	"github.com/scenrun/scenrun/internal/scenario"
)

func dryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dry /path/to/scenario.yaml",
		Short: "Validates a scenario and prints its task tree without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			scn, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			return agent.New(cfg, scn, agent.Options{
				Dry: true,
				Out: cmd.OutOrStdout(),
			}).Run(cmd.Context())
		},
	}
}
