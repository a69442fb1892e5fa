package job

import (
	"context"
	"fmt"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
)

// approvalReply is the input line forwarded to an agent waiting on a
// human sign-off
const approvalReply = "Approved. Continue."

// Approve resumes a job that is waiting for human sign-off. With a live
// process the approval is forwarded over its input stream; without one,
// the agent is re-invoked resuming its recorded session.
func (m *Manager) Approve(ctx context.Context, rawID string) error {
	j, err := m.jobs.FindFuzzy(ctx, rawID)
	if err != nil {
		return fmt.Errorf("look up job %s: %w", rawID, err)
	}
	if j == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, rawID)
	}
	if !j.CanApprove() {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, j.ID().String(), j.Status().String())
	}

	if err := j.UpdateStatus(model.StatusApprovedResume); err != nil {
		return fmt.Errorf("approve job %s: %w", j.ID().String(), err)
	}
	if err := m.jobs.UpdateStatus(ctx, j.ID(), model.StatusApprovedResume, ""); err != nil {
		return fmt.Errorf("persist approval of %s: %w", j.ID().String(), err)
	}

	// forward first, persist RUNNING only once the process accepted the
	// input: the process may die between the liveness check and the write
	if m.supervisor.IsRunning(j.ID()) && m.supervisor.SendInput(j.ID(), approvalReply) {
		if err := j.UpdateStatus(model.StatusRunning); err != nil {
			return fmt.Errorf("resume job %s: %w", j.ID().String(), err)
		}
		if err := m.jobs.UpdateStatus(ctx, j.ID(), model.StatusRunning, ""); err != nil {
			return fmt.Errorf("persist resume of %s: %w", j.ID().String(), err)
		}
		m.log.Info("job %s: approved, input forwarded", j.ID().String())
		return nil
	}

	if j.SessionID() == "" {
		return fmt.Errorf("%w: %s has no session to resume", ErrNoLiveProcess, j.ID().String())
	}

	m.dispatch(j)
	m.log.Info("job %s: approved, resuming session %s", j.ID().String(), j.SessionID())
	return nil
}

// Reject cancels a job. The cancellation flag makes a streaming loop
// stop cooperatively; termination reaps the process; tracker-side
// notifications are fire-and-forget.
func (m *Manager) Reject(ctx context.Context, rawID string) error {
	j, err := m.jobs.FindFuzzy(ctx, rawID)
	if err != nil {
		return fmt.Errorf("look up job %s: %w", rawID, err)
	}
	if j == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, rawID)
	}
	if !j.CanReject() {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, j.ID().String(), j.Status().String())
	}

	m.cancels.Cancel(j.ID())
	if err := m.supervisor.Terminate(j.ID()); err != nil {
		m.log.Warn("job %s: terminate: %v", j.ID().String(), err)
	}

	if err := j.UpdateStatus(model.StatusRejected); err != nil {
		return fmt.Errorf("reject job %s: %w", j.ID().String(), err)
	}
	if err := m.jobs.UpdateStatus(ctx, j.ID(), model.StatusRejected, ""); err != nil {
		return fmt.Errorf("persist rejection of %s: %w", j.ID().String(), err)
	}

	// no process means nobody else clears the flag
	if !m.supervisor.IsRunning(j.ID()) {
		m.cancels.Clear(j.ID())
	}

	m.log.Info("job %s: rejected", j.ID().String())
	return nil
}
