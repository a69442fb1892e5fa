package job

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	jobmodel "github.com/YoshitsuguKoike/deerun/internal/domain/model/job"
)

// TriggerRequest is one external trigger (webhook delivery, manual CLI call)
type TriggerRequest struct {
	Repo       string `validate:"required"`
	IssueNum   int    `validate:"required,gt=0"`
	IssueTitle string `validate:"required"`
	Command    string `validate:"required"`
	Label      string
}

// TriggerResult reports what a trigger call did
type TriggerResult struct {
	JobID   string
	Skipped bool
	Reason  string // populated when skipped
}

// Trigger creates and dispatches a job for an issue command. It is
// idempotent: a duplicate delivery while the same job is still active
// is skipped, not re-run. The call returns once the job is durably
// recorded; the agent process proceeds as a detached task.
func (m *Manager) Trigger(ctx context.Context, req TriggerRequest) (*TriggerResult, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid trigger request: %w", err)
	}

	id := model.NewJobID(req.Repo, req.IssueNum, req.Command)

	existing, err := m.jobs.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("look up job %s: %w", id.String(), err)
	}
	if existing != nil && existing.Status().IsActive() {
		m.log.Info("job %s: trigger skipped, already %s", id.String(), existing.Status().String())
		return &TriggerResult{
			JobID:   id.String(),
			Skipped: true,
			Reason:  fmt.Sprintf("job already %s", existing.Status().String()),
		}, nil
	}

	title := norm.NFC.String(req.IssueTitle)
	j, err := jobmodel.NewJob(req.Repo, req.IssueNum, title, req.Command, req.Label)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	// working-copy allocation must never fail the trigger: fall back to
	// the shared primary checkout and record the degraded isolation
	path, err := m.allocator.GetOrCreate(ctx, req.Repo, req.IssueNum, m.cfg.MainRepoPath)
	if err != nil {
		m.log.Warn("job %s: working copy allocation failed, using primary path: %v", id.String(), err)
		path = m.cfg.MainRepoPath
		j.RecordWarning(fmt.Sprintf("degraded isolation: %v", err))
	}
	j.SetWorkingCopy(path)
	j.SetLogPath(filepath.Join(m.cfg.LogDir, id.String()+".jsonl"))

	if err := m.jobs.Save(ctx, j); err != nil {
		return nil, fmt.Errorf("persist job %s: %w", id.String(), err)
	}

	m.dispatch(j)
	m.log.Info("job %s: triggered for %s#%d", id.String(), req.Repo, req.IssueNum)
	return &TriggerResult{JobID: id.String()}, nil
}

// dispatch hands a job to the supervisor on a detached goroutine
func (m *Manager) dispatch(j *jobmodel.Job) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		// detached from the trigger call's lifetime
		if err := m.supervisor.Run(context.Background(), j); err != nil {
			m.log.Error("job %s: supervisor run: %v", j.ID().String(), err)
		}
	}()
}
