package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List render jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			items, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}

			if jsonOutput {
				return writeJSON(cmd, items)
			}

			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no jobs recorded")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, job := range items {
				rows = append(rows, []string{
					shortID(job.ID),
					string(job.State),
					fmt.Sprintf("%.0f%%", job.Progress),
					job.CreatedAt.Local().Format(time.DateTime),
					jobDetail(job),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				cmd.OutOrStdout(),
				[]string{"ID", "State", "Progress", "Created", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit jobs as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n jobs (0 shows all)")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func jobDetail(job *jobs.Job) string {
	switch {
	case job.State == jobs.StateCompleted && job.Result != nil:
		return job.Result.Filename
	case job.State == jobs.StateFailed:
		return fmt.Sprintf("%s: %s", job.ErrorKind, truncate(job.ErrorMessage, 60))
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
