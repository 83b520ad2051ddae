package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/scenrun/scenrun/internal/agent"
	"github.com/scenrun/scenrun/internal/scenario"
)

func runCmd() *cobra.Command {
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "run /path/to/scenario.yaml",
		Short: "Executes a scenario and reports per-task outcomes",
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

			err = agent.New(cfg, scn, agent.Options{
				Out:       cmd.OutOrStdout(),
				NoHistory: noHistory,
			}).Run(cmd.Context())
			if errors.Is(err, agent.ErrRunFailed) || errors.Is(err, agent.ErrRunCancelled) {
				// The rendered report already tells the story; keep the
				// exit code without repeating it.
				cmd.SilenceErrors = true
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not persist the run report")
	return cmd
}
