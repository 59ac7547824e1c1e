package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate render statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, stats)
			}

			avg := time.Duration(stats.AvgRenderMs * float64(time.Millisecond))
			rows := [][]string{
				{"Processed", fmt.Sprintf("%d", stats.Processed)},
				{"Errors", fmt.Sprintf("%d", stats.Errors)},
				{"Rejected", fmt.Sprintf("%d", stats.Rejected)},
				{"Avg render time", avg.Round(time.Millisecond).String()},
				{"Success rate", fmt.Sprintf("%.1f%%", stats.SuccessRate*100)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				cmd.OutOrStdout(),
				[]string{"Metric", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit stats as JSON")
	return cmd
}
