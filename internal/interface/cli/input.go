package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newInputCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "input <job-id> <text>...",
		Short: "Send a line of input to a running job's agent",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			if err := container.Manager.SendInput(cmd.Context(), args[0], text); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Input sent to %s\n", args[0])
			return nil
		},
	}
}
