package job

import (
	"context"
	"fmt"
	"strings"

	jobmodel "github.com/YoshitsuguKoike/deerun/internal/domain/model/job"
)

// JobDetail is the full read model of one job
type JobDetail struct {
	Job        *jobmodel.Job
	Decisions  []*jobmodel.Decision
	Confidence *jobmodel.ConfidenceAssessment
}

// List returns all jobs, newest first
func (m *Manager) List(ctx context.Context) ([]*jobmodel.Job, error) {
	jobs, err := m.jobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Show resolves a job by exact or unique-suffix id and returns it with
// its mined insights. For a completed job read for the first time, the
// insights are extracted from the log on the spot.
func (m *Manager) Show(ctx context.Context, rawID string) (*JobDetail, error) {
	j, err := m.jobs.FindFuzzy(ctx, rawID)
	if err != nil {
		return nil, fmt.Errorf("look up job %s: %w", rawID, err)
	}
	if j == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, rawID)
	}

	decisions, confidence, err := m.insights.ForJob(ctx, j)
	if err != nil {
		return nil, fmt.Errorf("insights for %s: %w", j.ID().String(), err)
	}

	return &JobDetail{Job: j, Decisions: decisions, Confidence: confidence}, nil
}

// Log returns the last n raw log lines of a job; n <= 0 returns the
// whole log split into lines.
func (m *Manager) Log(ctx context.Context, rawID string, n int) ([]string, error) {
	j, err := m.jobs.FindFuzzy(ctx, rawID)
	if err != nil {
		return nil, fmt.Errorf("look up job %s: %w", rawID, err)
	}
	if j == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, rawID)
	}
	if n <= 0 {
		raw, err := m.logs.ReadAll(j.LogPath())
		if err != nil {
			return nil, fmt.Errorf("read log of %s: %w", j.ID().String(), err)
		}
		if raw == "" {
			return nil, nil
		}
		return strings.Split(strings.TrimRight(raw, "\n"), "\n"), nil
	}

	lines, err := m.logs.Tail(j.LogPath(), n)
	if err != nil {
		return nil, fmt.Errorf("read log of %s: %w", j.ID().String(), err)
	}
	return lines, nil
}

// SendInput forwards one line of operator text to a running job
func (m *Manager) SendInput(ctx context.Context, rawID, text string) error {
	j, err := m.jobs.FindFuzzy(ctx, rawID)
	if err != nil {
		return fmt.Errorf("look up job %s: %w", rawID, err)
	}
	if j == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, rawID)
	}
	if !m.supervisor.SendInput(j.ID(), text) {
		return fmt.Errorf("%w: %s", ErrNoLiveProcess, j.ID().String())
	}
	return nil
}
