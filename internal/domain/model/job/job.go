package job

import (
	"errors"
	"time"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
)

// Job is the unit of work: one invocation of the coding agent CLI against
// an isolated working copy, triggered by an issue command.
// Job is an aggregate root in DDD terms.
type Job struct {
	id         model.JobID
	repo       string
	issueNum   int
	issueTitle string
	command    string
	label      string

	workingCopyPath string
	logPath         string

	status    model.JobStatus
	sessionID string
	cost      *model.CostMetrics
	errMsg    string
	lastError string

	createdAt model.Timestamp
	updatedAt model.Timestamp
}

// NewJob creates a new Job in pending status
func NewJob(repo string, issueNum int, issueTitle, command, label string) (*Job, error) {
	if repo == "" {
		return nil, errors.New("repo cannot be empty")
	}
	if issueNum <= 0 {
		return nil, errors.New("issue number must be positive")
	}
	if command == "" {
		return nil, errors.New("command cannot be empty")
	}

	now := model.NewTimestamp()
	return &Job{
		id:         model.NewJobID(repo, issueNum, command),
		repo:       repo,
		issueNum:   issueNum,
		issueTitle: issueTitle,
		command:    command,
		label:      label,
		status:     model.StatusPending,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// Reconstruct rebuilds a Job from stored data without validation
func Reconstruct(
	id model.JobID,
	repo string,
	issueNum int,
	issueTitle string,
	command string,
	label string,
	workingCopyPath string,
	logPath string,
	status model.JobStatus,
	sessionID string,
	cost *model.CostMetrics,
	errMsg string,
	lastError string,
	createdAt time.Time,
	updatedAt time.Time,
) *Job {
	return &Job{
		id:              id,
		repo:            repo,
		issueNum:        issueNum,
		issueTitle:      issueTitle,
		command:         command,
		label:           label,
		workingCopyPath: workingCopyPath,
		logPath:         logPath,
		status:          status,
		sessionID:       sessionID,
		cost:            cost,
		errMsg:          errMsg,
		lastError:       lastError,
		createdAt:       model.NewTimestampFromTime(createdAt),
		updatedAt:       model.NewTimestampFromTime(updatedAt),
	}
}

func (j *Job) ID() model.JobID          { return j.id }
func (j *Job) Repo() string             { return j.repo }
func (j *Job) IssueNum() int            { return j.issueNum }
func (j *Job) IssueTitle() string       { return j.issueTitle }
func (j *Job) Command() string          { return j.command }
func (j *Job) Label() string            { return j.label }
func (j *Job) WorkingCopyPath() string  { return j.workingCopyPath }
func (j *Job) LogPath() string          { return j.logPath }
func (j *Job) Status() model.JobStatus  { return j.status }
func (j *Job) SessionID() string        { return j.sessionID }
func (j *Job) Cost() *model.CostMetrics { return j.cost }
func (j *Job) ErrorMessage() string     { return j.errMsg }
func (j *Job) LastError() string        { return j.lastError }

func (j *Job) CreatedAt() model.Timestamp { return j.createdAt }
func (j *Job) UpdatedAt() model.Timestamp { return j.updatedAt }

// IssueKey returns the (repository, issue) key this job's working copy is bound to
func (j *Job) IssueKey() model.IssueKey {
	return model.NewIssueKey(j.repo, j.issueNum)
}

// touch advances updatedAt, keeping it strictly non-decreasing even on
// coarse clocks
func (j *Job) touch() {
	now := time.Now()
	if !now.After(j.updatedAt.Value()) {
		now = j.updatedAt.Value().Add(time.Nanosecond)
	}
	j.updatedAt = model.NewTimestampFromTime(now)
}

// UpdateStatus transitions to a new status
func (j *Job) UpdateStatus(next model.JobStatus) error {
	if !next.IsValid() {
		return errors.New("invalid status")
	}
	if !j.status.CanTransitionTo(next) {
		return errors.New("invalid status transition from " + j.status.String() + " to " + next.String())
	}
	j.status = next
	j.touch()
	return nil
}

// MarkCompleted records a terminal success with its session and cost.
// Cost fields are only ever populated through this path.
func (j *Job) MarkCompleted(sessionID string, cost *model.CostMetrics) error {
	if err := j.UpdateStatus(model.StatusCompleted); err != nil {
		return err
	}
	j.sessionID = sessionID
	j.cost = cost
	return nil
}

// MarkFailed records a terminal failure with a human-readable reason
func (j *Job) MarkFailed(errMsg string) error {
	if err := j.UpdateStatus(model.StatusFailed); err != nil {
		return err
	}
	j.errMsg = errMsg
	j.lastError = errMsg
	return nil
}

// RecordWarning notes a non-fatal problem (e.g., degraded isolation)
func (j *Job) RecordWarning(msg string) {
	j.lastError = msg
	j.touch()
}

// AttachSession stores the agent session identifier once it is known
func (j *Job) AttachSession(sessionID string) {
	j.sessionID = sessionID
	j.touch()
}

// SetWorkingCopy binds the job to its working copy path
func (j *Job) SetWorkingCopy(path string) {
	j.workingCopyPath = path
	j.touch()
}

// SetLogPath records where the job's durable log lives
func (j *Job) SetLogPath(path string) {
	j.logPath = path
	j.touch()
}

// IsTerminal reports whether the job reached a terminal status
func (j *Job) IsTerminal() bool {
	return j.status.IsTerminal()
}

// CanApprove reports whether an operator may approve this job
func (j *Job) CanApprove() bool {
	return j.status == model.StatusWaitingApproval
}

// CanReject reports whether an operator may reject this job
func (j *Job) CanReject() bool {
	switch j.status {
	case model.StatusPending, model.StatusRunning, model.StatusWaitingApproval:
		return true
	default:
		return false
	}
}
