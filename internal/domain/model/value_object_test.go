package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewJobID(t *testing.T) {
	tests := []struct {
		name     string
		repo     string
		issueNum int
		command  string
		want     string
	}{
		{
			name:     "Repo with owner prefix",
			repo:     "org/repo",
			issueNum: 42,
			command:  "fix",
			want:     "repo-42-fix",
		},
		{
			name:     "Bare repo name",
			repo:     "deerun",
			issueNum: 7,
			command:  "implement",
			want:     "deerun-7-implement",
		},
		{
			name:     "Nested path keeps last segment",
			repo:     "group/sub/project",
			issueNum: 1,
			command:  "review",
			want:     "project-1-review",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := NewJobID(tt.repo, tt.issueNum, tt.command)
			assert.Equal(t, tt.want, id.String())
		})
	}
}

func TestNewJobID_Deterministic(t *testing.T) {
	a := NewJobID("org/repo", 42, "fix")
	b := NewJobID("org/repo", 42, "fix")
	assert.True(t, a.Equals(b))
}

func TestNewJobIDFromString(t *testing.T) {
	id, err := NewJobIDFromString("repo-42-fix")
	assert.NoError(t, err)
	assert.Equal(t, "repo-42-fix", id.String())

	_, err = NewJobIDFromString("")
	assert.Error(t, err)
}

func TestNewIssueKey(t *testing.T) {
	key := NewIssueKey("org/repo", 42)
	assert.Equal(t, "repo#42", key.String())
}

func TestJobStatus_IsValid(t *testing.T) {
	valid := []JobStatus{
		StatusPending, StatusRunning, StatusWaitingApproval, StatusApprovedResume,
		StatusBlocked, StatusCompleted, StatusFailed, StatusRejected, StatusInterrupted,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), "expected %s to be valid", s)
	}
	assert.False(t, JobStatus("UNKNOWN").IsValid())
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.False(t, StatusWaitingApproval.IsTerminal())
	assert.False(t, StatusInterrupted.IsTerminal())
	assert.False(t, StatusBlocked.IsTerminal())
}

func TestJobStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from JobStatus
		to   JobStatus
		want bool
	}{
		{"Pending to running", StatusPending, StatusRunning, true},
		{"Pending to rejected", StatusPending, StatusRejected, true},
		{"Pending to completed", StatusPending, StatusCompleted, false},
		{"Running to waiting approval", StatusRunning, StatusWaitingApproval, true},
		{"Running to completed", StatusRunning, StatusCompleted, true},
		{"Running to failed", StatusRunning, StatusFailed, true},
		{"Running to rejected", StatusRunning, StatusRejected, true},
		{"Running to interrupted", StatusRunning, StatusInterrupted, true},
		{"Waiting approval to approved resume", StatusWaitingApproval, StatusApprovedResume, true},
		{"Waiting approval to rejected", StatusWaitingApproval, StatusRejected, true},
		{"Waiting approval to completed", StatusWaitingApproval, StatusCompleted, false},
		{"Waiting approval to failed", StatusWaitingApproval, StatusFailed, true},
		{"Approved resume to running", StatusApprovedResume, StatusRunning, true},
		{"Approved resume to rejected", StatusApprovedResume, StatusRejected, false},
		{"Completed is terminal", StatusCompleted, StatusRunning, false},
		{"Failed is terminal", StatusFailed, StatusPending, false},
		{"Rejected is terminal", StatusRejected, StatusRunning, false},
		{"Interrupted can restart", StatusInterrupted, StatusRunning, true},
		{"Any non-terminal to blocked", StatusWaitingApproval, StatusBlocked, true},
		{"Pending to blocked", StatusPending, StatusBlocked, true},
		{"Terminal cannot be blocked", StatusCompleted, StatusBlocked, false},
		{"Blocked to rejected", StatusBlocked, StatusRejected, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestDecisionCategory_IsValid(t *testing.T) {
	valid := []DecisionCategory{
		CategoryArchitecture, CategoryLibrary, CategoryPattern, CategoryStorage,
		CategoryAPI, CategoryTesting, CategoryUI, CategoryOther,
	}
	for _, c := range valid {
		assert.True(t, c.IsValid(), "expected %s to be valid", c)
	}
	assert.False(t, DecisionCategory("misc").IsValid())
}
