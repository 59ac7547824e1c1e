package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reel/internal/timeline"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "validate <timeline.json>",
		Short:       "Check a timeline and report every violation",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := loadTimeline(args[0])
			if err != nil {
				return err
			}

			err = timeline.Validate(tl)
			if err == nil {
				if jsonOutput {
					return writeJSON(cmd, []timeline.ValidationError{})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "timeline is valid")
				return nil
			}

			var violations timeline.ValidationErrors
			if !errors.As(err, &violations) {
				return err
			}
			if jsonOutput {
				if writeErr := writeJSON(cmd, violations); writeErr != nil {
					return writeErr
				}
			} else {
				for _, violation := range violations {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", violation.Path, violation.Message)
				}
			}
			return fmt.Errorf("%d validation problem(s)", len(violations))
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit violations as JSON")
	return cmd
}
