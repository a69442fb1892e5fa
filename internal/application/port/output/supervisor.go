package output

import (
	"context"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model/job"
)

// Supervisor owns the external agent process of a job: spawn, stream,
// forward interactive input, terminate. At most one live process exists
// per job at any time.
type Supervisor interface {
	// Run spawns the agent process for a job and drains its output until
	// exit. It blocks; callers dispatch it on their own goroutine. The
	// job's terminal (or waiting) status is persisted before Run returns.
	Run(ctx context.Context, j *job.Job) error

	// SendInput forwards one line of operator input to a running job.
	// Returns false when the job has no live registered process.
	SendInput(id model.JobID, text string) bool

	// Terminate tears down a job's process: input stream closed first,
	// then the whole process group is signalled, then force-killed after
	// a grace period. Safe to call on a job with no live process.
	Terminate(id model.JobID) error

	// IsRunning reports whether the job has a live registered process
	IsRunning(id model.JobID) bool
}
