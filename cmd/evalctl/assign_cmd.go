package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"evalhub/internal/app/server"
	"evalhub/internal/domain/autoassign"
	"evalhub/internal/transport/http/shared"
)

type commandOutput struct {
	Command    string `json:"command"`
	DurationMS int64  `json:"duration_ms"`
	Result     any    `json:"result"`
}

func newAutoAssignCmd() *cobra.Command {
	var (
		orgID     string
		eventID   string
		programID string
		dueDate   string
		policy    autoassign.Policy
	)

	cmd := &cobra.Command{
		Use:   "auto-assign",
		Short: "Generate evaluator assignments for an event from the hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(orgID); err != nil {
				return fmt.Errorf("invalid --org: %w", err)
			}
			due, err := shared.OptionalDate(dueDate)
			if err != nil {
				return fmt.Errorf("invalid --due-date: %w", err)
			}
			policy.DueDate = due
			in := autoassign.RunInput{EventID: eventID, OrganizationID: orgID, Policy: policy}
			if programID != "" {
				in.ProgramID = &programID
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
			res, err := app.Services.AutoAssign.Run(cmd.Context(), operator(orgID), in)
			if err != nil {
				return err
			}
			return writeJSON(commandOutput{
				Command:    "auto-assign",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     res,
			})
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "Organization UUID (required)")
	cmd.Flags().StringVar(&eventID, "event", "", "Evaluation event UUID (required)")
	cmd.Flags().StringVar(&programID, "program", "", "Restrict to one program")
	cmd.Flags().StringVar(&dueDate, "due-date", "", "Due date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().BoolVar(&policy.IncludeManagers, "managers", true, "Managers evaluate their reports")
	cmd.Flags().BoolVar(&policy.IncludePeers, "peers", false, "Peers evaluate each other")
	cmd.Flags().BoolVar(&policy.IncludeSubordinates, "subordinates", false, "Reports evaluate their managers")
	cmd.Flags().BoolVar(&policy.IncludeSelf, "self", false, "Everyone evaluates themselves")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}
