package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appetiteclub/frontdesk/pkg/backend"
)

func newLoginCmd(g *globals) *cobra.Command {
	var email, password string

	c := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the bearer token for --token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			account, err := g.client().Login(cmd.Context(), email, password)
			if errors.Is(err, backend.ErrInvalidCredentials) {
				return fmt.Errorf("invalid email or password")
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "Signed in as %s (%s)\n", account.Username, account.Role)
			printf(out, "export FRONTDESK_TOKEN=%s\n", account.Token)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "account email")
	c.Flags().StringVar(&password, "password", "", "account password")
	return c
}
