package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/spf13/cobra"

	"github.com/appetiteclub/frontdesk/pkg/booking"
)

func newAvailabilityCmd(g *globals) *cobra.Command {
	var (
		date      string
		slot      string
		partySize int
		demo      bool
	)

	c := &cobra.Command{
		Use:   "availability",
		Short: "Show the tables that can seat a party at a date and time",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := time.Parse(booking.DateLayout, date); err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD)")
			}
			if !booking.IsSlot(slot) {
				return fmt.Errorf("invalid --time %q (want one of %v)", slot, booking.Slots)
			}
			if !apt.MinValueInt(partySize, booking.MinPartySize) || !apt.MaxValueInt(partySize, booking.MaxPartySize) {
				return fmt.Errorf("--party-size must be between %d and %d", booking.MinPartySize, booking.MaxPartySize)
			}

			var opts []booking.ResolverOption
			if demo {
				opts = append(opts, booking.WithFallbackTables(booking.DemoTables()))
			}
			resolver := booking.NewResolver(g.client(), g.logger(), opts...)
			if err := resolver.Warm(cmd.Context()); err != nil {
				g.logger().Debug("table list unavailable", "error", err)
			}

			avail, err := resolver.Resolve(cmd.Context(), booking.Query{Date: date, Time: slot, PartySize: partySize})
			if err != nil {
				return err
			}

			printAvailability(cmd.OutOrStdout(), avail)
			return nil
		},
	}

	c.Flags().StringVar(&date, "date", time.Now().Format(booking.DateLayout), "reservation date (YYYY-MM-DD)")
	c.Flags().StringVar(&slot, "time", booking.DefaultTime, "reservation time slot (HH:MM)")
	c.Flags().IntVar(&partySize, "party-size", booking.DefaultPartySize, "number of guests")
	c.Flags().BoolVar(&demo, "demo", false, "fall back to demo tables when the backend has none")
	return c
}

func printAvailability(out io.Writer, avail booking.Availability) {
	q := avail.Query
	printf(out, "%s at %s for %d (%s)\n", q.Date, q.Time, q.PartySize, avail.Tier)
	if avail.Message != "" {
		printf(out, "%s\n", avail.Message)
	}
	if len(avail.Tables) == 0 {
		printf(out, "No tables available.\n")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTABLE\tSEATS\tLOCATION\tSTATUS")
	for _, t := range avail.Tables {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", t.ID, t.TableNumber, t.Capacity, t.Location, t.Status)
	}
	tw.Flush()
}
