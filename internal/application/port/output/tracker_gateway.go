package output

import "context"

// TrackerGateway is the issue-tracker boundary. All calls are best-effort:
// the manager logs failures and never escalates them.
type TrackerGateway interface {
	// CloseIssueWithComment closes the triggering issue with a summary comment
	CloseIssueWithComment(ctx context.Context, repo string, issueNum int, comment string) error

	// RemoveLabel removes the trigger label from the issue
	RemoveLabel(ctx context.Context, repo string, issueNum int, label string) error
}
