package commands

import (
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			printf(cmd.OutOrStdout(), "%s %s (commit=%s, built=%s)\n", appName, Version, CommitSHA, BuildDate)
		},
	}
}
