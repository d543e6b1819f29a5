package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-studio/internal/config"
	"github.com/jonathan/resume-studio/internal/server"
)

var issueTokenUserID string

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Print a signed API token for a user",
	Long:  "Signs a bearer token with JWT_SECRET. Intended for development and for services that act on behalf of a user.",
	RunE:  runIssueToken,
}

func init() {
	issueTokenCmd.Flags().StringVarP(&issueTokenUserID, "user-id", "u", "", "User ID (a new one is generated when empty)")
	rootCmd.AddCommand(issueTokenCmd)
}

func runIssueToken(cmd *cobra.Command, _ []string) error {
	userID := uuid.New()
	if issueTokenUserID != "" {
		parsed, err := uuid.Parse(issueTokenUserID)
		if err != nil {
			return fmt.Errorf("invalid user ID: %w", err)
		}
		userID = parsed
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	token, err := server.NewJWTService(jwtConfig).GenerateToken(userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "user: %s\n", userID)
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
