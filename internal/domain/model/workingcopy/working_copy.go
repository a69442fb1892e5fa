package workingcopy

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
)

// WorkingCopy is an isolated checkout bound to one (repository, issue) pair.
// It is reused across repeated triggers for the same issue so successive
// commands accumulate on the same branch.
type WorkingCopy struct {
	id        string
	issueKey  model.IssueKey
	path      string
	branch    string
	createdAt time.Time
}

// NewWorkingCopy creates a new WorkingCopy record
func NewWorkingCopy(issueKey model.IssueKey, path, branch string) (*WorkingCopy, error) {
	if path == "" {
		return nil, errors.New("working copy path cannot be empty")
	}
	if branch == "" {
		return nil, errors.New("working copy branch cannot be empty")
	}
	return &WorkingCopy{
		id:        uuid.New().String(),
		issueKey:  issueKey,
		path:      path,
		branch:    branch,
		createdAt: time.Now(),
	}, nil
}

// Reconstruct rebuilds a WorkingCopy from stored data
func Reconstruct(id string, issueKey model.IssueKey, path, branch string, createdAt time.Time) *WorkingCopy {
	return &WorkingCopy{
		id:        id,
		issueKey:  issueKey,
		path:      path,
		branch:    branch,
		createdAt: createdAt,
	}
}

func (w *WorkingCopy) ID() string               { return w.id }
func (w *WorkingCopy) IssueKey() model.IssueKey { return w.issueKey }
func (w *WorkingCopy) Path() string             { return w.path }
func (w *WorkingCopy) Branch() string           { return w.branch }
func (w *WorkingCopy) CreatedAt() time.Time     { return w.createdAt }
