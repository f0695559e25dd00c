package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"evalhub/internal/domain"
	"evalhub/internal/domain/auth"
	"evalhub/internal/platform/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "evalctl",
		Short:         "Evaluation service operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCmd(), newMigrateCmd(), newAutoAssignCmd(), newRecalculateCmd())
	return cmd
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, cfg.Validate()
}

// operator is the actor recorded in the audit trail for CLI-triggered work.
func operator(orgID string) domain.Actor {
	return domain.Actor{ID: "evalctl", Name: "evalctl", OrganizationID: orgID, Role: auth.RoleSystemAdmin}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
