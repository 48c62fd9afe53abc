package root

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/task-focus/internal/auth"
	"github.com/nhle/task-focus/internal/credential"
)

func newLoginCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token in the system keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("--token is required")
			}
			id, err := auth.IdentityFromToken(token, time.Now())
			if err != nil {
				return fmt.Errorf("rejecting token: %w", err)
			}

			vault, err := credential.Open()
			if err != nil {
				return err
			}
			if err := vault.SetToken(token); err != nil {
				return err
			}

			who := id.UserID
			if id.Email != "" {
				who = id.Email
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", who)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "bearer token issued by the server")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			vault, err := credential.Open()
			if err != nil {
				return err
			}
			if err := vault.ClearToken(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage server tokens",
	}
	cmd.AddCommand(newTokenIssueCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a token signed with server.auth_token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Server.AuthToken == "" {
				return errors.New("server.auth_token is not set")
			}
			token, err := auth.Issue(userID, email, cfg.Server.AuthToken, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime (0 for no expiry)")
	return cmd
}
