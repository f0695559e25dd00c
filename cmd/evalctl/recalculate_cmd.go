package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"evalhub/internal/app/server"
)

func newRecalculateCmd() *cobra.Command {
	var orgID, eventID string

	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Recompute results for every evaluatee of an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(orgID); err != nil {
				return fmt.Errorf("invalid --org: %w", err)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := server.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			start := time.Now()
			res, err := app.Services.Results.CalculateEvent(cmd.Context(), operator(orgID), eventID)
			if err != nil {
				return err
			}
			return writeJSON(commandOutput{
				Command:    "recalculate",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     map[string]any{"eventId": eventID, "calculated": len(res)},
			})
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "Organization UUID (required)")
	cmd.Flags().StringVar(&eventID, "event", "", "Evaluation event UUID (required)")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}
