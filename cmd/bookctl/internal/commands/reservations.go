package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/appetiteclub/frontdesk/pkg/booking"
	"github.com/appetiteclub/frontdesk/pkg/enums/reservationstatus"
)

func newReservationsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reservations",
		Aliases: []string{"res"},
		Short:   "List reservations and change their status",
	}
	cmd.AddCommand(newReservationsListCmd(g))
	cmd.AddCommand(newReservationsMineCmd(g))
	cmd.AddCommand(newReservationsStatusCmd(g))
	cmd.AddCommand(newReservationsCancelCmd(g))
	return cmd
}

func newReservationsListCmd(g *globals) *cobra.Command {
	var date, status string

	c := &cobra.Command{
		Use:   "list",
		Short: "List reservations with per-status counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := booking.ReservationFilter{Date: date, Status: strings.ToLower(status)}
			if filter.Date != "" {
				if _, err := time.Parse(booking.DateLayout, filter.Date); err != nil {
					return fmt.Errorf("invalid --date (want YYYY-MM-DD)")
				}
			}
			if filter.Status == "all" {
				filter.Status = ""
			}
			if filter.Status != "" && reservationstatus.ByName(filter.Status) == nil {
				return fmt.Errorf("invalid --status %q", status)
			}

			reservations, err := g.client().FetchReservations(cmd.Context(), filter)
			if err != nil {
				return describe(err)
			}

			printReservations(cmd.OutOrStdout(), reservations)
			return nil
		},
	}

	c.Flags().StringVar(&date, "date", "", "only reservations on this date (YYYY-MM-DD)")
	c.Flags().StringVar(&status, "status", "all", "only reservations with this status")
	return c
}

func newReservationsMineCmd(g *globals) *cobra.Command {
	var email string

	c := &cobra.Command{
		Use:   "mine",
		Short: "List the reservations booked under an email address",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("--email is required")
			}
			reservations, err := g.client().FetchUserReservations(cmd.Context(), email)
			if err != nil {
				return describe(err)
			}
			printReservations(cmd.OutOrStdout(), reservations)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "email the reservations were booked under")
	return c
}

func newReservationsStatusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status <reservation-id> <status>",
		Short: "Move a reservation to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateStatus(cmd, g, args[0], args[1])
		},
	}
}

func newReservationsCancelCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <reservation-id>",
		Short: "Cancel a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateStatus(cmd, g, args[0], reservationstatus.Statuses.Cancelled.Code())
		},
	}
}

func updateStatus(cmd *cobra.Command, g *globals, id, name string) error {
	status := reservationstatus.ByName(strings.ToLower(strings.TrimSpace(name)))
	if status == nil {
		return fmt.Errorf("invalid status %q", name)
	}
	if err := g.client().UpdateReservationStatus(cmd.Context(), id, status.Code()); err != nil {
		return describe(err)
	}
	printf(cmd.OutOrStdout(), "Reservation %s is now %s\n", id, status.Label())
	return nil
}

func printReservations(out io.Writer, reservations []booking.Reservation) {
	counts := make(map[string]int, len(reservationstatus.All))
	for _, r := range reservations {
		counts[strings.ToLower(r.Status)]++
	}

	printf(out, "Total: %d", len(reservations))
	for _, s := range reservationstatus.All {
		printf(out, "  %s: %d", s.Label(), counts[s.Code()])
	}
	printf(out, "\n")

	if len(reservations) == 0 {
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tTABLE\tPARTY\tCUSTOMER\tSTATUS")
	for _, r := range reservations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.ReservationDate, r.ReservationTime, r.TableNumber, r.PartySize, r.CustomerName, r.Status)
	}
	tw.Flush()
}
