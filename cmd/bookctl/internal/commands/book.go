package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/appetiteclub/frontdesk/pkg/booking"
)

func newBookCmd(g *globals) *cobra.Command {
	var (
		name      string
		email     string
		phone     string
		date      string
		slot      string
		partySize int
		requests  string
		table     string
		demo      bool
	)

	c := &cobra.Command{
		Use:   "book",
		Short: "Book a table, walking the same steps as the booking wizard",
		Long: `Book a table, walking the same steps as the booking wizard.

Without --table the first available table that seats the party is chosen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.token == "" {
				return fmt.Errorf("--token is required, run 'bookctl login' first")
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			logger := g.logger()
			client := g.client()

			var opts []booking.ResolverOption
			if demo {
				opts = append(opts, booking.WithFallbackTables(booking.DemoTables()))
			}
			resolver := booking.NewResolver(client, logger, opts...)
			if err := resolver.Warm(ctx); err != nil {
				logger.Debug("table list unavailable", "error", err)
			}

			wizard := booking.NewWizard(resolver, client, logger, time.Now)
			defer wizard.Close()

			fields := []struct{ name, value string }{
				{"customerName", name},
				{"customerEmail", email},
				{"customerPhone", phone},
				{"specialRequests", requests},
				{"reservationDate", date},
				{"reservationTime", slot},
				{"partySize", strconv.Itoa(partySize)},
			}
			for _, f := range fields {
				if err := wizard.Update(ctx, f.name, f.value); err != nil {
					return err
				}
			}

			// customer info, then date and time, which resolves availability
			for i := 0; i < 2; i++ {
				if err := wizard.Next(ctx); err != nil {
					return describe(err)
				}
			}

			avail, ok := wizard.Availability()
			if !ok {
				return fmt.Errorf("availability could not be resolved")
			}
			printAvailability(out, avail)

			chosen, err := chooseTable(avail, table)
			if err != nil {
				return err
			}
			if err := wizard.SelectTable(chosen.ID); err != nil {
				return describe(err)
			}
			if err := wizard.Next(ctx); err != nil {
				return describe(err)
			}

			res, err := wizard.Submit(ctx)
			if err != nil {
				return describe(err)
			}

			printf(out, "Reservation %s created: table %s on %s at %s for %d (%s)\n",
				res.ID, res.TableNumber, res.ReservationDate, res.ReservationTime, res.PartySize, res.Status)
			return nil
		},
	}

	flags := c.Flags()
	flags.StringVar(&name, "name", "", "customer name")
	flags.StringVar(&email, "email", "", "customer email")
	flags.StringVar(&phone, "phone", "", "customer phone")
	flags.StringVar(&date, "date", time.Now().Format(booking.DateLayout), "reservation date (YYYY-MM-DD)")
	flags.StringVar(&slot, "time", booking.DefaultTime, "reservation time slot (HH:MM)")
	flags.IntVar(&partySize, "party-size", booking.DefaultPartySize, "number of guests")
	flags.StringVar(&requests, "requests", "", "special requests")
	flags.StringVar(&table, "table", "", "table id or number")
	flags.BoolVar(&demo, "demo", false, "fall back to demo tables when the backend has none")
	return c
}

// chooseTable picks the requested table, by id or number, or the first offered.
func chooseTable(avail booking.Availability, want string) (booking.Table, error) {
	if len(avail.Tables) == 0 {
		return booking.Table{}, fmt.Errorf("no tables available for %s at %s", avail.Query.Date, avail.Query.Time)
	}
	if want == "" {
		return avail.Tables[0], nil
	}
	for _, t := range avail.Tables {
		if t.ID == want || strings.EqualFold(t.TableNumber, want) {
			return t, nil
		}
	}
	return booking.Table{}, fmt.Errorf("table %s is not available", want)
}

// describe turns booking errors into messages fit for a terminal.
func describe(err error) error {
	var verr *booking.ValidationError
	var rejected *booking.ServerValidationError
	switch {
	case errors.As(err, &verr):
		return fmt.Errorf("%s", verr.Message)
	case booking.IsConflict(err):
		return fmt.Errorf("that table was just booked, please choose another table")
	case errors.As(err, &rejected):
		return fmt.Errorf("rejected: %s", rejected.Message)
	case errors.Is(err, booking.ErrUnauthorized):
		return fmt.Errorf("token rejected, run 'bookctl login' again")
	default:
		return err
	}
}
