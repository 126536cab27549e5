package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinicdesk/clinicdesk/internal/config"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// tokenCmd mints a bearer token signed with AUTH_SIGNING_KEY, for staff accounts and
// local testing against a non-development server.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for a clinician",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			name, _ := cmd.Flags().GetString("name")
			roles, _ := cmd.Flags().GetStringSlice("roles")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AuthSigningKey == "" {
				return fmt.Errorf("AUTH_SIGNING_KEY is not set")
			}
			token, err := auth.IssueToken([]byte(cfg.AuthSigningKey), cfg.AuthIssuer, subject, name, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("subject", "", "Clinician id stored as report author")
	cmd.Flags().String("name", "", "Display name")
	cmd.Flags().StringSlice("roles", []string{"physician"}, "Roles granted by the token")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
