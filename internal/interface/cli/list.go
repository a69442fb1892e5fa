package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := container.Manager.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "JOB ID\tSTATUS\tREPO\tISSUE\tUPDATED")
			for _, j := range jobs {
				fmt.Fprintf(w, "%s\t%s\t%s\t#%d\t%s\n",
					j.ID().String(),
					j.Status().String(),
					j.Repo(),
					j.IssueNum(),
					j.UpdatedAt().Value().Format(time.RFC3339),
				)
			}
			return w.Flush()
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job with its mined decisions and confidence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := container.Manager.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			j := detail.Job
			fmt.Fprintf(out, "Job:         %s\n", j.ID().String())
			fmt.Fprintf(out, "Status:      %s\n", j.Status().String())
			fmt.Fprintf(out, "Repo:        %s (issue #%d)\n", j.Repo(), j.IssueNum())
			fmt.Fprintf(out, "Title:       %s\n", j.IssueTitle())
			fmt.Fprintf(out, "Command:     %s\n", j.Command())
			fmt.Fprintf(out, "Working dir: %s\n", j.WorkingCopyPath())
			if j.SessionID() != "" {
				fmt.Fprintf(out, "Session:     %s\n", j.SessionID())
			}
			if cost := j.Cost(); cost != nil {
				fmt.Fprintf(out, "Cost:        $%.4f (%d in / %d out tokens)\n",
					cost.TotalUSD, cost.InputTokens, cost.OutputTokens)
			}
			if j.ErrorMessage() != "" {
				fmt.Fprintf(out, "Error:       %s\n", j.ErrorMessage())
			}
			if j.LastError() != "" && j.LastError() != j.ErrorMessage() {
				fmt.Fprintf(out, "Warning:     %s\n", j.LastError())
			}

			if len(detail.Decisions) > 0 {
				fmt.Fprintf(out, "\nDecisions (%d):\n", len(detail.Decisions))
				for i, d := range detail.Decisions {
					fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, d.Category.String(), d.Action)
					fmt.Fprintf(out, "     Reasoning: %s\n", d.Reasoning)
					if len(d.Alternatives) > 0 {
						fmt.Fprintf(out, "     Alternatives: %s\n", strings.Join(d.Alternatives, "; "))
					}
				}
			}
			if c := detail.Confidence; c != nil {
				fmt.Fprintf(out, "\nConfidence: %d/100", c.Score)
				if c.Assessment != "" {
					fmt.Fprintf(out, " (%s)", c.Assessment)
				}
				fmt.Fprintln(out)
				if c.Reasoning != "" {
					fmt.Fprintf(out, "  Reasoning: %s\n", c.Reasoning)
				}
				if len(c.Risks) > 0 {
					fmt.Fprintf(out, "  Risks: %s\n", strings.Join(c.Risks, "; "))
				}
			}
			return nil
		},
	}
}
