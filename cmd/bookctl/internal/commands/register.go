package commands

import (
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/spf13/cobra"

	"github.com/appetiteclub/frontdesk/pkg/backend"
	"github.com/appetiteclub/frontdesk/pkg/booking"
)

func newRegisterCmd(g *globals) *cobra.Command {
	var reg backend.Registration

	c := &cobra.Command{
		Use:   "register",
		Short: "Create a customer account and print its bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reg.Username == "" || reg.Email == "" || reg.Password == "" {
				return fmt.Errorf("--username, --email and --password are required")
			}
			if !apt.MinLength(reg.Password, 6) {
				return fmt.Errorf("--password must be at least 6 characters")
			}

			account, err := g.client().Register(cmd.Context(), reg)
			var rejected *booking.ServerValidationError
			if errors.As(err, &rejected) {
				return fmt.Errorf("registration rejected: %s", rejected.Message)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "Registered %s (%s)\n", account.Username, account.Role)
			printf(out, "export FRONTDESK_TOKEN=%s\n", account.Token)
			return nil
		},
	}

	c.Flags().StringVar(&reg.Username, "username", "", "display name")
	c.Flags().StringVar(&reg.Email, "email", "", "account email")
	c.Flags().StringVar(&reg.Password, "password", "", "account password, at least 6 characters")
	c.Flags().StringVar(&reg.Phone, "phone", "", "contact phone")
	return c
}
