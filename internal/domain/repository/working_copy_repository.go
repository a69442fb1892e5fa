package repository

import (
	"context"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model/workingcopy"
)

// WorkingCopyRepository persists WorkingCopy records.
// The working-copy allocator is the sole writer; at most one record exists
// per issue key.
type WorkingCopyRepository interface {
	// Save persists a working copy record
	Save(ctx context.Context, wc *workingcopy.WorkingCopy) error

	// FindByIssueKey retrieves the record for an issue key.
	// Returns (nil, nil) when absent.
	FindByIssueKey(ctx context.Context, key model.IssueKey) (*workingcopy.WorkingCopy, error)

	// List retrieves all working copy records
	List(ctx context.Context) ([]*workingcopy.WorkingCopy, error)

	// Delete removes the record for an issue key
	Delete(ctx context.Context, key model.IssueKey) error
}
