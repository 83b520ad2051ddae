package cmd

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/scenrun/scenrun/internal/history"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Lists recent scenario runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.Paths.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Run ID", "Scenario", "Outcome", "Started", "Duration"})
			for _, e := range entries {
				tw.AppendRow(table.Row{
					e.RunID,
					e.Scenario,
					e.Outcome,
					e.StartedAt.Local().Format(time.RFC3339),
					e.FinishedAt.Sub(e.StartedAt).Round(time.Millisecond),
				})
			}
			tw.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}
