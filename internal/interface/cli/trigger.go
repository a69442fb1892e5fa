package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	jobuc "github.com/YoshitsuguKoike/deerun/internal/application/usecase/job"
)

func newTriggerCmd() *cobra.Command {
	var req jobuc.TriggerRequest

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Trigger an agent job for an issue command",
		Long: `Trigger creates a job for (repo, issue, command) and starts the agent
in the issue's working copy. Duplicate triggers while the same job is
still active are skipped. The command stays attached until the agent
process finishes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := container.Manager.Trigger(cmd.Context(), req)
			if err != nil {
				return err
			}
			if result.Skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "Skipped: %s (%s)\n", result.Reason, result.JobID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Triggered job %s\n", result.JobID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Repo, "repo", "", "repository reference (owner/name)")
	cmd.Flags().IntVar(&req.IssueNum, "issue", 0, "issue number")
	cmd.Flags().StringVar(&req.IssueTitle, "title", "", "issue title")
	cmd.Flags().StringVar(&req.Command, "command", "", "agent command (e.g. fix, review)")
	cmd.Flags().StringVar(&req.Label, "label", "", "trigger label to remove when the job ends")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("issue")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("command")
	return cmd
}
