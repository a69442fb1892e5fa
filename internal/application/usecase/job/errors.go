package job

import "errors"

var (
	// ErrJobNotFound means no stored job matched the given id
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidState means the job's current status forbids the operation
	ErrInvalidState = errors.New("operation not allowed in current job status")

	// ErrNoLiveProcess means the job has no registered process to talk to
	ErrNoLiveProcess = errors.New("job has no live process")
)
