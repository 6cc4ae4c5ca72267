// ABOUTME: adduser command: creates an account directly in the database
// ABOUTME: Used to seed the first creator before sign-up is exposed

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/creatordash/internal/config"
	"github.com/2389/creatordash/internal/identity"
	"github.com/2389/creatordash/internal/server"
)

func addUserCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create an account",
		Long: `Create an account with the given email. The password is read
from standard input, one line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return errors.New("--email is required")
			}

			cfg, err := config.Load(getConfigPath())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			password, err := readPassword(cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			s, err := server.OpenStore(cfg)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer s.Close()

			provider, err := server.NewProvider(cfg, s, setupLogger(config.LoggingConfig{Level: "warn"}))
			if err != nil {
				return err
			}

			user, err := provider.CreateAccount(cmd.Context(), email, password)
			if err != nil {
				if authErr, ok := identity.AsAuthError(err); ok {
					return errors.New(authErr.Message)
				}
				return fmt.Errorf("creating account: %w", err)
			}

			green := color.New(color.FgGreen)
			green.Fprintf(cmd.OutOrStdout(), "  ✓ Created account %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (required)")
	return cmd
}

func readPassword(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	return password, nil
}
