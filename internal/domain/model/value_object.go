package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobID identifies a job. It is derived deterministically from the
// repository slug, the issue number, and the command name, which makes
// re-triggering the same work idempotent by construction.
type JobID struct {
	value string
}

// NewJobID derives a JobID from its components.
// Format: <repo>-<issue>-<command> (e.g., "deerun-42-fix")
func NewJobID(repo string, issueNum int, command string) JobID {
	return JobID{value: fmt.Sprintf("%s-%d-%s", RepoSlug(repo), issueNum, command)}
}

// NewJobIDFromString creates a JobID from an existing string
func NewJobIDFromString(id string) (JobID, error) {
	if id == "" {
		return JobID{}, errors.New("job ID cannot be empty")
	}
	return JobID{value: id}, nil
}

// String returns the string representation
func (j JobID) String() string {
	return j.value
}

// Equals checks if two JobIDs are equal
func (j JobID) Equals(other JobID) bool {
	return j.value == other.value
}

// RepoSlug reduces an "owner/name" repository reference to its name part
func RepoSlug(repo string) string {
	if idx := strings.LastIndex(repo, "/"); idx >= 0 {
		return repo[idx+1:]
	}
	return repo
}

// IssueKey identifies the (repository, issue) pair a working copy is bound to
type IssueKey struct {
	value string
}

// NewIssueKey creates an IssueKey from a repository and issue number
func NewIssueKey(repo string, issueNum int) IssueKey {
	return IssueKey{value: fmt.Sprintf("%s#%d", RepoSlug(repo), issueNum)}
}

// NewIssueKeyFromString creates an IssueKey from an existing string
func NewIssueKeyFromString(key string) (IssueKey, error) {
	if key == "" {
		return IssueKey{}, errors.New("issue key cannot be empty")
	}
	return IssueKey{value: key}, nil
}

// String returns the string representation
func (k IssueKey) String() string {
	return k.value
}

// JobStatus represents the current status of a job
type JobStatus string

const (
	StatusPending         JobStatus = "PENDING"
	StatusRunning         JobStatus = "RUNNING"
	StatusWaitingApproval JobStatus = "WAITING_APPROVAL"
	StatusApprovedResume  JobStatus = "APPROVED_RESUME"
	StatusBlocked         JobStatus = "BLOCKED"
	StatusCompleted       JobStatus = "COMPLETED"
	StatusFailed          JobStatus = "FAILED"
	StatusRejected        JobStatus = "REJECTED"
	StatusInterrupted     JobStatus = "INTERRUPTED"
)

// String returns the string representation
func (s JobStatus) String() string {
	return string(s)
}

// IsValid validates the status
func (s JobStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusWaitingApproval, StatusApprovedResume,
		StatusBlocked, StatusCompleted, StatusFailed, StatusRejected, StatusInterrupted:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition may occur
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRejected:
		return true
	default:
		return false
	}
}

// IsActive reports whether a job in this status guards against re-triggering
func (s JobStatus) IsActive() bool {
	return s == StatusPending || s == StatusRunning
}

// CanTransitionTo checks if a status transition is valid
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	// Any non-terminal job may become blocked when an external
	// precondition (e.g., its working copy) goes missing.
	if next == StatusBlocked {
		return !s.IsTerminal()
	}

	validTransitions := map[JobStatus][]JobStatus{
		StatusPending:         {StatusRunning, StatusRejected},
		StatusRunning:         {StatusWaitingApproval, StatusCompleted, StatusFailed, StatusRejected, StatusInterrupted},
		StatusWaitingApproval: {StatusApprovedResume, StatusRejected, StatusFailed},
		StatusApprovedResume:  {StatusRunning},
		StatusBlocked:         {StatusPending, StatusRunning, StatusRejected},
		StatusInterrupted:     {StatusPending, StatusRunning, StatusRejected},
		StatusCompleted:       {},
		StatusFailed:          {},
		StatusRejected:        {},
	}

	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}

	for _, allowedStatus := range allowed {
		if allowedStatus == next {
			return true
		}
	}
	return false
}

// DecisionCategory classifies a mined design decision
type DecisionCategory string

const (
	CategoryArchitecture DecisionCategory = "architecture"
	CategoryLibrary      DecisionCategory = "library"
	CategoryPattern      DecisionCategory = "pattern"
	CategoryStorage      DecisionCategory = "storage"
	CategoryAPI          DecisionCategory = "api"
	CategoryTesting      DecisionCategory = "testing"
	CategoryUI           DecisionCategory = "ui"
	CategoryOther        DecisionCategory = "other"
)

// String returns the string representation
func (c DecisionCategory) String() string {
	return string(c)
}

// IsValid validates the category
func (c DecisionCategory) IsValid() bool {
	switch c {
	case CategoryArchitecture, CategoryLibrary, CategoryPattern, CategoryStorage,
		CategoryAPI, CategoryTesting, CategoryUI, CategoryOther:
		return true
	default:
		return false
	}
}

// CostMetrics captures the cost of a successfully completed job
type CostMetrics struct {
	TotalUSD     float64
	InputTokens  int
	OutputTokens int
}

// Timestamp represents a point in time
type Timestamp struct {
	value time.Time
}

// NewTimestamp creates a new Timestamp with current time
func NewTimestamp() Timestamp {
	return Timestamp{value: time.Now()}
}

// NewTimestampFromTime creates a Timestamp from a time.Time value
func NewTimestampFromTime(t time.Time) Timestamp {
	return Timestamp{value: t}
}

// Value returns the time.Time value
func (t Timestamp) Value() time.Time {
	return t.value
}

// Before checks if this timestamp is before another
func (t Timestamp) Before(other Timestamp) bool {
	return t.value.Before(other.value)
}

// After checks if this timestamp is after another
func (t Timestamp) After(other Timestamp) bool {
	return t.value.After(other.value)
}

// String returns the string representation
func (t Timestamp) String() string {
	return t.value.Format(time.RFC3339)
}
