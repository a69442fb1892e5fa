package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "log <job-id>",
		Short: "Print a job's raw event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := container.Manager.Log(cmd.Context(), args[0], tail)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&tail, "tail", 0, "print only the last N lines (0 = all)")
	return cmd
}
