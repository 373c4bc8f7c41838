package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/appetiteclub/frontdesk/pkg/booking"
)

func newTablesCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List and edit the floor plan",
	}
	cmd.AddCommand(newTablesListCmd(g))
	cmd.AddCommand(newTablesCreateCmd(g))
	cmd.AddCommand(newTablesUpdateCmd(g))
	cmd.AddCommand(newTablesDeleteCmd(g))
	return cmd
}

func newTablesListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := g.client().FetchAllTables(cmd.Context())
			if err != nil {
				return describe(err)
			}
			printTables(cmd.OutOrStdout(), tables)
			return nil
		},
	}
}

func newTablesCreateCmd(g *globals) *cobra.Command {
	var in booking.TableInput

	c := &cobra.Command{
		Use:   "create",
		Short: "Add a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			in = in.Normalize()
			if err := in.Validate(); err != nil {
				return err
			}
			table, err := g.client().CreateTable(cmd.Context(), in)
			if err != nil {
				return describe(err)
			}
			printf(cmd.OutOrStdout(), "Table %s created with id %s\n", table.TableNumber, table.ID)
			return nil
		},
	}
	tableInputFlags(c, &in)
	return c
}

func newTablesUpdateCmd(g *globals) *cobra.Command {
	var in booking.TableInput

	c := &cobra.Command{
		Use:   "update <table-id>",
		Short: "Replace the fields of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in = in.Normalize()
			if err := in.Validate(); err != nil {
				return err
			}
			table, err := g.client().UpdateTable(cmd.Context(), args[0], in)
			if err != nil {
				return describe(err)
			}
			printf(cmd.OutOrStdout(), "Table %s updated\n", table.TableNumber)
			return nil
		},
	}
	tableInputFlags(c, &in)
	return c
}

func newTablesDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table-id>",
		Short: "Remove a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.client().DeleteTable(cmd.Context(), args[0]); err != nil {
				return describe(err)
			}
			printf(cmd.OutOrStdout(), "Table %s deleted\n", args[0])
			return nil
		},
	}
}

func tableInputFlags(c *cobra.Command, in *booking.TableInput) {
	flags := c.Flags()
	flags.StringVar(&in.TableNumber, "number", "", "table number, e.g. T07")
	flags.IntVar(&in.Capacity, "capacity", 2, "seats")
	flags.StringVar(&in.Location, "location", "", "indoors, outdoors, balcony or private")
	flags.StringVar(&in.Status, "status", "", "available, occupied, reserved or maintenance")
	flags.StringVar(&in.Description, "description", "", "free text shown to staff")
}

func printTables(out io.Writer, tables []booking.Table) {
	if len(tables) == 0 {
		printf(out, "No tables.\n")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTABLE\tSEATS\tLOCATION\tSTATUS\tDESCRIPTION")
	for _, t := range tables {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", t.ID, t.TableNumber, t.Capacity, t.Location, t.Status, t.Description)
	}
	tw.Flush()
}
