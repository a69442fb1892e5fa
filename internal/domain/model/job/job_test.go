package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
)

func TestNewJob(t *testing.T) {
	tests := []struct {
		name     string
		repo     string
		issueNum int
		command  string
		wantErr  bool
		wantID   string
	}{
		{
			name:     "Valid job",
			repo:     "org/repo",
			issueNum: 42,
			command:  "fix",
			wantErr:  false,
			wantID:   "repo-42-fix",
		},
		{
			name:     "Empty repo",
			repo:     "",
			issueNum: 42,
			command:  "fix",
			wantErr:  true,
		},
		{
			name:     "Zero issue number",
			repo:     "org/repo",
			issueNum: 0,
			command:  "fix",
			wantErr:  true,
		},
		{
			name:     "Empty command",
			repo:     "org/repo",
			issueNum: 42,
			command:  "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := NewJob(tt.repo, tt.issueNum, "Fix bug", tt.command, "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, j.ID().String())
			assert.Equal(t, model.StatusPending, j.Status())
			assert.Nil(t, j.Cost())
		})
	}
}

func TestJob_UpdateStatus(t *testing.T) {
	j, err := NewJob("org/repo", 42, "Fix bug", "fix", "")
	require.NoError(t, err)

	require.NoError(t, j.UpdateStatus(model.StatusRunning))
	assert.Equal(t, model.StatusRunning, j.Status())

	// Invalid transition leaves status unchanged
	err = j.UpdateStatus(model.StatusPending)
	assert.Error(t, err)
	assert.Equal(t, model.StatusRunning, j.Status())

	require.NoError(t, j.UpdateStatus(model.StatusWaitingApproval))
	require.NoError(t, j.UpdateStatus(model.StatusApprovedResume))
	require.NoError(t, j.UpdateStatus(model.StatusRunning))
	require.NoError(t, j.UpdateStatus(model.StatusCompleted))
	assert.True(t, j.IsTerminal())
}

func TestJob_UpdatedAtMonotonic(t *testing.T) {
	j, err := NewJob("org/repo", 42, "Fix bug", "fix", "")
	require.NoError(t, err)

	prev := j.UpdatedAt().Value()
	steps := []model.JobStatus{
		model.StatusRunning,
		model.StatusWaitingApproval,
		model.StatusApprovedResume,
		model.StatusRunning,
		model.StatusCompleted,
	}
	for _, s := range steps {
		require.NoError(t, j.UpdateStatus(s))
		assert.False(t, j.UpdatedAt().Value().Before(prev),
			"updatedAt went backwards on transition to %s", s)
		prev = j.UpdatedAt().Value()
	}
}

func TestJob_MarkCompleted(t *testing.T) {
	j, err := NewJob("org/repo", 42, "Fix bug", "fix", "")
	require.NoError(t, err)
	require.NoError(t, j.UpdateStatus(model.StatusRunning))

	cost := &model.CostMetrics{TotalUSD: 0.42, InputTokens: 1200, OutputTokens: 800}
	require.NoError(t, j.MarkCompleted("sess-123", cost))

	assert.Equal(t, model.StatusCompleted, j.Status())
	assert.Equal(t, "sess-123", j.SessionID())
	require.NotNil(t, j.Cost())
	assert.Equal(t, 0.42, j.Cost().TotalUSD)
}

func TestJob_MarkCompleted_FromPendingFails(t *testing.T) {
	j, err := NewJob("org/repo", 42, "Fix bug", "fix", "")
	require.NoError(t, err)

	err = j.MarkCompleted("sess-123", nil)
	assert.Error(t, err)
	assert.Equal(t, model.StatusPending, j.Status())
	assert.Nil(t, j.Cost())
}

func TestJob_MarkFailed(t *testing.T) {
	j, err := NewJob("org/repo", 42, "Fix bug", "fix", "")
	require.NoError(t, err)
	require.NoError(t, j.UpdateStatus(model.StatusRunning))

	require.NoError(t, j.MarkFailed("exit status 1"))
	assert.Equal(t, model.StatusFailed, j.Status())
	assert.Equal(t, "exit status 1", j.ErrorMessage())
	assert.Equal(t, "exit status 1", j.LastError())
}

func TestJob_ApprovalGuards(t *testing.T) {
	j, err := NewJob("org/repo", 42, "Fix bug", "fix", "")
	require.NoError(t, err)

	assert.False(t, j.CanApprove())
	assert.True(t, j.CanReject())

	require.NoError(t, j.UpdateStatus(model.StatusRunning))
	require.NoError(t, j.UpdateStatus(model.StatusWaitingApproval))
	assert.True(t, j.CanApprove())
	assert.True(t, j.CanReject())

	require.NoError(t, j.UpdateStatus(model.StatusRejected))
	assert.False(t, j.CanApprove())
	assert.False(t, j.CanReject())
}

func TestReconstruct(t *testing.T) {
	id := model.NewJobID("org/repo", 42, "fix")
	created := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	j := Reconstruct(id, "org/repo", 42, "Fix bug", "fix", "agent",
		"/tmp/wc", "/tmp/log.jsonl", model.StatusRunning, "sess-1", nil,
		"", "", created, updated)

	assert.Equal(t, "repo-42-fix", j.ID().String())
	assert.Equal(t, model.StatusRunning, j.Status())
	assert.Equal(t, "repo#42", j.IssueKey().String())
	assert.Equal(t, created, j.CreatedAt().Value())
	assert.Equal(t, updated, j.UpdatedAt().Value())
}
