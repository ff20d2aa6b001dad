package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information - set during build with ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Display version information",
		Aliases: []string{"v"},
		Args:    cobra.NoArgs,
		// No config needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scrubber %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
