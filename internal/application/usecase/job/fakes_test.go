package job

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	jobmodel "github.com/YoshitsuguKoike/deerun/internal/domain/model/job"
)

type memJobRepo struct {
	mu       sync.Mutex
	jobs     map[string]*jobmodel.Job
	statuses map[string][]model.JobStatus
	running  []model.JobID // ids MarkInterrupted reports
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{
		jobs:     make(map[string]*jobmodel.Job),
		statuses: make(map[string][]model.JobStatus),
	}
}

func (r *memJobRepo) Save(_ context.Context, j *jobmodel.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID().String()] = j
	return nil
}

func (r *memJobRepo) Find(_ context.Context, id model.JobID) (*jobmodel.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id.String()], nil
}

func (r *memJobRepo) FindFuzzy(_ context.Context, raw string) (*jobmodel.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[raw]; ok {
		return j, nil
	}
	var match *jobmodel.Job
	for id, j := range r.jobs {
		if strings.HasSuffix(id, raw) {
			if match != nil {
				return nil, nil
			}
			match = j
		}
	}
	return match, nil
}

func (r *memJobRepo) List(_ context.Context) ([]*jobmodel.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*jobmodel.Job
	for _, j := range r.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (r *memJobRepo) UpdateStatus(_ context.Context, id model.JobID, status model.JobStatus, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id.String()] = append(r.statuses[id.String()], status)
	return nil
}

func (r *memJobRepo) UpdateCompleted(_ context.Context, id model.JobID, _ string, _ *model.CostMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id.String()] = append(r.statuses[id.String()], model.StatusCompleted)
	return nil
}

func (r *memJobRepo) MarkInterrupted(_ context.Context) ([]model.JobID, error) {
	return r.running, nil
}

func (r *memJobRepo) history(id model.JobID) []model.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.JobStatus{}, r.statuses[id.String()]...)
}

// fakeSupervisor records lifecycle calls without spawning anything
type fakeSupervisor struct {
	mu          sync.Mutex
	ran         []model.JobID
	ranStatus   []model.JobStatus
	inputs      []string
	terminated  []model.JobID
	runningIDs  map[string]bool
	acceptInput bool
}

func newFakeSupervisor() *fakeSupervisor {
	return &fakeSupervisor{runningIDs: make(map[string]bool)}
}

func (f *fakeSupervisor) Run(_ context.Context, j *jobmodel.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, j.ID())
	f.ranStatus = append(f.ranStatus, j.Status())
	return nil
}

func (f *fakeSupervisor) SendInput(id model.JobID, text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.acceptInput {
		return false
	}
	f.inputs = append(f.inputs, text)
	return true
}

func (f *fakeSupervisor) Terminate(id model.JobID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, id)
	delete(f.runningIDs, id.String())
	return nil
}

func (f *fakeSupervisor) IsRunning(id model.JobID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runningIDs[id.String()]
}

func (f *fakeSupervisor) markRunning(id model.JobID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runningIDs[id.String()] = true
}

func (f *fakeSupervisor) runCalls() []model.JobID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.JobID{}, f.ran...)
}

// fakeAllocator returns a fixed path or a fixed error
type fakeAllocator struct {
	mu       sync.Mutex
	path     string
	err      error
	calls    int
	cleaned  []model.IssueKey
	cleanErr error
}

func (f *fakeAllocator) GetOrCreate(_ context.Context, repo string, issueNum int, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

func (f *fakeAllocator) Cleanup(_ context.Context, key model.IssueKey, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, key)
	return f.cleanErr
}

var errAllocatorDown = errors.New("git worktree add failed")

type stubInsightRepo struct {
	mu         sync.Mutex
	decisions  map[string][]*jobmodel.Decision
	confidence map[string]*jobmodel.ConfidenceAssessment
}

func newStubInsightRepo() *stubInsightRepo {
	return &stubInsightRepo{
		decisions:  make(map[string][]*jobmodel.Decision),
		confidence: make(map[string]*jobmodel.ConfidenceAssessment),
	}
}

func (r *stubInsightRepo) SaveDecisions(_ context.Context, ds []*jobmodel.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range ds {
		r.decisions[d.JobID.String()] = append(r.decisions[d.JobID.String()], d)
	}
	return nil
}

func (r *stubInsightRepo) FindDecisionsByJobID(_ context.Context, id model.JobID) ([]*jobmodel.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decisions[id.String()], nil
}

func (r *stubInsightRepo) SaveConfidence(_ context.Context, c *jobmodel.ConfidenceAssessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confidence[c.JobID.String()] = c
	return nil
}

func (r *stubInsightRepo) FindConfidenceByJobID(_ context.Context, id model.JobID) (*jobmodel.ConfidenceAssessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.confidence[id.String()], nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
