package repository

import (
	"context"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model/job"
)

// JobRepository persists Job aggregates.
// All operations go through the durable store and may fail with a backend error.
type JobRepository interface {
	// Save persists a job (insert or replace by id)
	Save(ctx context.Context, j *job.Job) error

	// Find retrieves a job by exact id. Returns (nil, nil) when absent.
	Find(ctx context.Context, id model.JobID) (*job.Job, error)

	// FindFuzzy retrieves a job by exact id, falling back to a unique
	// suffix match against stored ids. Returns (nil, nil) when absent.
	FindFuzzy(ctx context.Context, id string) (*job.Job, error)

	// List retrieves all jobs, newest first
	List(ctx context.Context) ([]*job.Job, error)

	// UpdateStatus persists a status change together with an optional error message
	UpdateStatus(ctx context.Context, id model.JobID, status model.JobStatus, errMsg string) error

	// UpdateCompleted persists a terminal success with its session id and cost
	UpdateCompleted(ctx context.Context, id model.JobID, sessionID string, cost *model.CostMetrics) error

	// MarkInterrupted flags every RUNNING job as INTERRUPTED.
	// A running status found at boot is necessarily stale.
	// Returns the ids of the jobs it touched.
	MarkInterrupted(ctx context.Context) ([]model.JobID, error)
}
