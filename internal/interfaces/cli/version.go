package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// No config or logger is needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "mmp %s\ncommit: %s\nbuilt:  %s\ngo:     %s\n",
				Version, GitCommit, BuildDate, runtime.Version())
			return nil
		},
	}
}

//Personal.AI order the ending
