package output

import (
	"context"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
)

// WorkspaceAllocator provisions isolated working copies per issue
type WorkspaceAllocator interface {
	// GetOrCreate returns the working copy path for (repo, issue),
	// creating and recording a fresh checkout when none exists
	GetOrCreate(ctx context.Context, repo string, issueNum int, mainRepoPath string) (string, error)

	// Cleanup removes the working copy for an issue key
	Cleanup(ctx context.Context, key model.IssueKey, mainRepoPath string) error
}
