package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Mark stale RUNNING jobs as INTERRUPTED",
		Long: `Recovery also runs automatically at startup; this command reports
what it did. A job recorded as RUNNING can only be stale after a
restart, since no process registry survives one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// startup recovery already ran while the container was built
			ids := container.RecoveredJobs()
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No interrupted jobs found.")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "Interrupted: %s\n", id.String())
			}
			return nil
		},
	}
}
