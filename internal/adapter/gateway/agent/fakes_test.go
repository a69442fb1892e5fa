package agent

import (
	"context"
	"sync"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model/job"
)

// memJobRepo is a concurrency-safe in-memory JobRepository
type memJobRepo struct {
	mu       sync.Mutex
	jobs     map[string]*job.Job
	statuses map[string][]model.JobStatus
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{
		jobs:     make(map[string]*job.Job),
		statuses: make(map[string][]model.JobStatus),
	}
}

// Save stores a detached snapshot so later aggregate mutations by the
// supervisor goroutine never race with repository reads
func (r *memJobRepo) Save(_ context.Context, j *job.Job) error {
	snapshot := job.Reconstruct(
		j.ID(), j.Repo(), j.IssueNum(), j.IssueTitle(),
		j.Command(), j.Label(), j.WorkingCopyPath(), j.LogPath(),
		j.Status(), j.SessionID(), j.Cost(), j.ErrorMessage(), j.LastError(),
		j.CreatedAt().Value(), j.UpdatedAt().Value(),
	)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID().String()] = snapshot
	return nil
}

func (r *memJobRepo) Find(_ context.Context, id model.JobID) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuild(id.String()), nil
}

func (r *memJobRepo) FindFuzzy(_ context.Context, id string) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuild(id), nil
}

func (r *memJobRepo) List(_ context.Context) ([]*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*job.Job
	for id := range r.jobs {
		out = append(out, r.rebuild(id))
	}
	return out, nil
}

func (r *memJobRepo) UpdateStatus(_ context.Context, id model.JobID, status model.JobStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id.String()] = append(r.statuses[id.String()], status)
	return nil
}

func (r *memJobRepo) UpdateCompleted(_ context.Context, id model.JobID, sessionID string, cost *model.CostMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id.String()] = append(r.statuses[id.String()], model.StatusCompleted)
	return nil
}

func (r *memJobRepo) MarkInterrupted(_ context.Context) ([]model.JobID, error) {
	return nil, nil
}

// rebuild returns a detached copy reflecting the recorded status history
func (r *memJobRepo) rebuild(id string) *job.Job {
	stored, ok := r.jobs[id]
	if !ok {
		return nil
	}
	status := stored.Status()
	if history := r.statuses[id]; len(history) > 0 {
		status = history[len(history)-1]
	}
	return job.Reconstruct(
		stored.ID(), stored.Repo(), stored.IssueNum(), stored.IssueTitle(),
		stored.Command(), stored.Label(), stored.WorkingCopyPath(), stored.LogPath(),
		status, stored.SessionID(), stored.Cost(), stored.ErrorMessage(), stored.LastError(),
		stored.CreatedAt().Value(), stored.UpdatedAt().Value(),
	)
}

func (r *memJobRepo) lastStatus(id model.JobID) model.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := r.statuses[id.String()]
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1]
}

func (r *memJobRepo) history(id model.JobID) []model.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.JobStatus{}, r.statuses[id.String()]...)
}

// memInsightRepo is a concurrency-safe in-memory InsightRepository
type memInsightRepo struct {
	mu         sync.Mutex
	decisions  map[string][]*job.Decision
	confidence map[string]*job.ConfidenceAssessment
}

func newMemInsightRepo() *memInsightRepo {
	return &memInsightRepo{
		decisions:  make(map[string][]*job.Decision),
		confidence: make(map[string]*job.ConfidenceAssessment),
	}
}

func (r *memInsightRepo) SaveDecisions(_ context.Context, decisions []*job.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range decisions {
		r.decisions[d.JobID.String()] = append(r.decisions[d.JobID.String()], d)
	}
	return nil
}

func (r *memInsightRepo) FindDecisionsByJobID(_ context.Context, id model.JobID) ([]*job.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*job.Decision{}, r.decisions[id.String()]...), nil
}

func (r *memInsightRepo) SaveConfidence(_ context.Context, c *job.ConfidenceAssessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confidence[c.JobID.String()] = c
	return nil
}

func (r *memInsightRepo) FindConfidenceByJobID(_ context.Context, id model.JobID) (*job.ConfidenceAssessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.confidence[id.String()], nil
}

// recordingTracker records notification calls
type recordingTracker struct {
	mu      sync.Mutex
	closed  []string
	removed []string
}

func (t *recordingTracker) CloseIssueWithComment(_ context.Context, repo string, issueNum int, comment string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = append(t.closed, repo)
	return nil
}

func (t *recordingTracker) RemoveLabel(_ context.Context, repo string, issueNum int, label string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removed = append(t.removed, label)
	return nil
}

// nopLogger discards everything
type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
