package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/jobs"
	"reel/internal/render"
	"reel/internal/timeline"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var fieldFlags []string
	var outputName string
	var dryRun bool
	var wait bool
	var timeout time.Duration
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "render <timeline.json>",
		Short: "Submit a timeline for rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			tl, err := loadTimeline(args[0])
			if err != nil {
				return err
			}
			fields, err := parseFieldFlags(fieldFlags)
			if err != nil {
				return err
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			executor := render.NewExecutor(cfg, store, ctx.ensureLogger())
			defer executor.Close()

			req := render.Request{
				Timeline:   tl,
				Fields:     fields,
				OutputName: outputName,
				Timeout:    timeout,
			}

			if dryRun {
				compiled, err := executor.Plan(req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cfg.FFmpegBinary())
				for _, arg := range compiled.Args() {
					fmt.Fprintf(out, "  %s\n", arg)
				}
				for _, skipped := range compiled.SkippedClips {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipping %s (asset not found)\n", skipped)
				}
				return nil
			}

			events := make(chan render.Event, 256)
			if wait {
				req.Events = events
			}

			job, err := executor.Submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "job %s submitted\n", job.ID)
			}

			var followed chan struct{}
			if wait {
				followed = make(chan struct{})
				go func() {
					defer close(followed)
					followEvents(cmd, events)
				}()
			}

			// The executor lives in this process; returning before the job is
			// terminal would tear it down mid-render.
			final, waitErr := executor.Wait(cmd.Context(), job.ID)
			executor.Close()
			if wait {
				close(events)
				<-followed
			}
			if waitErr != nil {
				return waitErr
			}
			if jsonOutput {
				return writeJSON(cmd, final)
			}
			return printOutcome(cmd, final)
		},
	}

	cmd.Flags().StringArrayVar(&fieldFlags, "fields", nil, "Merge field as key=value (repeatable)")
	cmd.Flags().StringVarP(&outputName, "output", "o", "", "Output file name inside the output directory")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the encoder invocation without running it")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Follow stage and progress output while rendering")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-job wall clock limit (0 uses the configured default)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the final job snapshot as JSON")

	return cmd
}

func loadTimeline(path string) (*timeline.Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read timeline: %w", err)
	}
	tl, err := timeline.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse timeline %s: %w", path, err)
	}
	return tl, nil
}

func parseFieldFlags(flags []string) (timeline.MergeFieldMap, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	fields := make(timeline.MergeFieldMap, len(flags))
	for _, flag := range flags {
		key, value, ok := strings.Cut(flag, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q (expected key=value)", flag)
		}
		fields[key] = value
	}
	return fields, nil
}

func followEvents(cmd *cobra.Command, events <-chan render.Event) {
	out := cmd.ErrOrStderr()
	lastBucket := -1
	for event := range events {
		switch event.Type {
		case render.EventStateChanged:
			fmt.Fprintf(out, "-> %s\n", event.State)
		case render.EventProgress:
			bucket := int(event.Percent) / 10
			if bucket > lastBucket {
				lastBucket = bucket
				fmt.Fprintf(out, "   rendering %3.0f%%\n", event.Percent)
			}
		}
	}
}

func printOutcome(cmd *cobra.Command, job *jobs.Job) error {
	out := cmd.OutOrStdout()
	if job.State == jobs.StateCompleted && job.Result != nil {
		fmt.Fprintf(out, "completed: %s (%d bytes, %.1fs, %dx%d)\n",
			job.Result.Path, job.Result.Size, job.Result.Duration,
			job.Result.Width, job.Result.Height)
		return nil
	}
	if job.StderrTail != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), job.StderrTail)
	}
	return fmt.Errorf("job %s failed (%s): %s", job.ID, job.ErrorKind, job.ErrorMessage)
}
