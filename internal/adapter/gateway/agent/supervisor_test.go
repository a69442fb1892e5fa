//go:build !windows

package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deerun/internal/application/service"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model/job"
	"github.com/YoshitsuguKoike/deerun/internal/infrastructure/logstore"
)

type supervisorFixture struct {
	sup     *Supervisor
	jobs    *memJobRepo
	insight *memInsightRepo
	logs    *logstore.Store
	cancels *service.CancelService
	tracker *recordingTracker
}

// newSupervisorFixture wires a Supervisor around a fake agent script
func newSupervisorFixture(t *testing.T, script string) *supervisorFixture {
	t.Helper()

	bin := filepath.Join(t.TempDir(), "fake-agent")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	f := &supervisorFixture{
		jobs:    newMemJobRepo(),
		insight: newMemInsightRepo(),
		logs:    logstore.NewStore(afero.NewOsFs()),
		cancels: service.NewCancelService(),
		tracker: &recordingTracker{},
	}
	f.sup = NewSupervisor(
		Config{Bin: bin, GracePeriod: 200 * time.Millisecond},
		f.jobs, f.insight, f.logs, f.cancels, f.tracker, nopLogger{},
	)
	return f
}

// newTestJob creates a pending job with a real working copy directory
func newTestJob(t *testing.T, label string) *job.Job {
	t.Helper()
	j, err := job.NewJob("acme/widget", 7, "Fix the flaky retry loop", "fix", label)
	require.NoError(t, err)
	j.SetWorkingCopy(t.TempDir())
	j.SetLogPath(filepath.Join(t.TempDir(), "job.log"))
	return j
}

func TestSupervisor_RunCompletes(t *testing.T) {
	script := `#!/bin/sh
printf '%s\n' '{"type":"system","subtype":"init","session_id":"sess-1"}'
printf '%s\n' '{"type":"assistant","message":{"content":[{"type":"text","text":"===DECISION===\nACTION: reuse the existing retry helper\nREASONING: it already handles backoff\nCATEGORY: pattern\n===END==="}]}}'
printf '%s\n' '{"type":"result","subtype":"success","is_error":false,"total_cost_usd":0.25,"usage":{"input_tokens":10,"output_tokens":5},"session_id":"sess-1"}'
`
	f := newSupervisorFixture(t, script)
	j := newTestJob(t, "agent-fix")
	require.NoError(t, f.jobs.Save(context.Background(), j))

	require.NoError(t, f.sup.Run(context.Background(), j))

	assert.Equal(t, model.StatusCompleted, f.jobs.lastStatus(j.ID()))
	assert.Equal(t, "sess-1", j.SessionID())
	assert.False(t, f.sup.IsRunning(j.ID()))

	// every stream line landed in the durable log
	raw, err := f.logs.ReadAll(j.LogPath())
	require.NoError(t, err)
	assert.Contains(t, raw, `"session_id":"sess-1"`)

	decisions, err := f.insight.FindDecisionsByJobID(context.Background(), j.ID())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "reuse the existing retry helper", decisions[0].Action)
	assert.Equal(t, model.CategoryPattern, decisions[0].Category)

	assert.Equal(t, []string{"acme/widget"}, f.tracker.closed)
	assert.Equal(t, []string{"agent-fix"}, f.tracker.removed)
}

func TestSupervisor_RunNonZeroExitFails(t *testing.T) {
	script := `#!/bin/sh
printf '%s\n' '{"type":"system","session_id":"sess-2"}'
exit 3
`
	f := newSupervisorFixture(t, script)
	j := newTestJob(t, "agent-fix")
	require.NoError(t, f.jobs.Save(context.Background(), j))

	require.NoError(t, f.sup.Run(context.Background(), j))

	assert.Equal(t, model.StatusFailed, f.jobs.lastStatus(j.ID()))
	// failed jobs still shed the trigger label, but never close the issue
	assert.Empty(t, f.tracker.closed)
	assert.Equal(t, []string{"agent-fix"}, f.tracker.removed)
}

func TestSupervisor_RunErrorResultFails(t *testing.T) {
	script := `#!/bin/sh
printf '%s\n' '{"type":"result","subtype":"error_during_execution","is_error":true,"result":"tool crashed","session_id":"sess-3"}'
`
	f := newSupervisorFixture(t, script)
	j := newTestJob(t, "")
	require.NoError(t, f.jobs.Save(context.Background(), j))

	require.NoError(t, f.sup.Run(context.Background(), j))
	assert.Equal(t, model.StatusFailed, f.jobs.lastStatus(j.ID()))
}

func TestSupervisor_MissingWorkingCopyBlocks(t *testing.T) {
	f := newSupervisorFixture(t, "#!/bin/sh\n")
	j, err := job.NewJob("acme/widget", 8, "title", "fix", "")
	require.NoError(t, err)
	j.SetWorkingCopy("/nonexistent/working/copy")
	j.SetLogPath(filepath.Join(t.TempDir(), "job.log"))
	require.NoError(t, f.jobs.Save(context.Background(), j))

	err = f.sup.Run(context.Background(), j)
	require.Error(t, err)
	assert.Equal(t, model.StatusBlocked, f.jobs.lastStatus(j.ID()))
}

func TestSupervisor_CancellationStopsProcess(t *testing.T) {
	script := `#!/bin/sh
printf '%s\n' '{"type":"system","session_id":"sess-5"}'
sleep 30
`
	f := newSupervisorFixture(t, script)
	j := newTestJob(t, "")
	require.NoError(t, f.jobs.Save(context.Background(), j))

	f.cancels.Cancel(j.ID())

	start := time.Now()
	require.NoError(t, f.sup.Run(context.Background(), j))
	assert.Less(t, time.Since(start), 10*time.Second, "cancelled run must not wait for the sleep")

	// the reject operation owns the terminal transition; the flag is cleared
	assert.Equal(t, model.StatusRunning, f.jobs.lastStatus(j.ID()))
	assert.False(t, f.cancels.IsCancelled(j.ID()))
	assert.False(t, f.sup.IsRunning(j.ID()))
}

func TestSupervisor_ApprovalRoundTrip(t *testing.T) {
	script := `#!/bin/sh
printf '%s\n' '{"type":"system","session_id":"sess-6"}'
printf '%s\n' '{"type":"assistant","message":{"content":[{"type":"text","text":"About to force-push. [APPROVAL_REQUIRED]"}]}}'
read reply
printf '%s\n' '{"type":"result","subtype":"success","is_error":false,"session_id":"sess-6"}'
`
	f := newSupervisorFixture(t, script)
	j := newTestJob(t, "")
	require.NoError(t, f.jobs.Save(context.Background(), j))

	done := make(chan error, 1)
	go func() { done <- f.sup.Run(context.Background(), j) }()

	require.Eventually(t, func() bool {
		return f.jobs.lastStatus(j.ID()) == model.StatusWaitingApproval
	}, 5*time.Second, 10*time.Millisecond)

	// operator approves: the lifecycle manager persists the resume and
	// forwards the input that unblocks the agent
	require.NoError(t, f.jobs.UpdateStatus(context.Background(), j.ID(), model.StatusApprovedResume, ""))
	require.NoError(t, f.jobs.UpdateStatus(context.Background(), j.ID(), model.StatusRunning, ""))
	assert.True(t, f.sup.SendInput(j.ID(), "approved, go ahead"))

	require.NoError(t, <-done)
	assert.Equal(t, model.StatusCompleted, f.jobs.lastStatus(j.ID()))
}

func TestSupervisor_ExitWhileAwaitingApprovalFails(t *testing.T) {
	script := `#!/bin/sh
printf '%s\n' '{"type":"assistant","message":{"content":[{"type":"text","text":"[APPROVAL_REQUIRED]"}]}}'
`
	f := newSupervisorFixture(t, script)
	j := newTestJob(t, "")
	require.NoError(t, f.jobs.Save(context.Background(), j))

	require.NoError(t, f.sup.Run(context.Background(), j))
	assert.Equal(t, model.StatusFailed, f.jobs.lastStatus(j.ID()))
}

func TestSupervisor_SendInputWithoutProcess(t *testing.T) {
	f := newSupervisorFixture(t, "#!/bin/sh\n")
	assert.False(t, f.sup.SendInput(model.NewJobID("acme/widget", 1, "fix"), "hello"))
}

func TestSupervisor_TerminateWithoutProcess(t *testing.T) {
	f := newSupervisorFixture(t, "#!/bin/sh\n")
	assert.NoError(t, f.sup.Terminate(model.NewJobID("acme/widget", 1, "fix")))
}

func TestSupervisor_TerminateRunningProcess(t *testing.T) {
	script := `#!/bin/sh
printf '%s\n' '{"type":"system","session_id":"sess-7"}'
sleep 30
`
	f := newSupervisorFixture(t, script)
	j := newTestJob(t, "")
	require.NoError(t, f.jobs.Save(context.Background(), j))

	done := make(chan error, 1)
	go func() { done <- f.sup.Run(context.Background(), j) }()

	require.Eventually(t, func() bool {
		return f.sup.IsRunning(j.ID())
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, f.sup.Terminate(j.ID()))

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after terminate")
	}
	assert.False(t, f.sup.IsRunning(j.ID()))
}

func TestSupervisor_ConcurrentDistinctJobs(t *testing.T) {
	script := `#!/bin/sh
printf '%s\n' '{"type":"result","subtype":"success","is_error":false,"session_id":"sess-8"}'
`
	f := newSupervisorFixture(t, script)

	jobs := make([]*job.Job, 0, 4)
	for i := 1; i <= 4; i++ {
		j, err := job.NewJob("acme/widget", i, "title", "fix", "")
		require.NoError(t, err)
		j.SetWorkingCopy(t.TempDir())
		j.SetLogPath(filepath.Join(t.TempDir(), "job.log"))
		require.NoError(t, f.jobs.Save(context.Background(), j))
		jobs = append(jobs, j)
	}

	done := make(chan error, len(jobs))
	for _, j := range jobs {
		go func(j *job.Job) { done <- f.sup.Run(context.Background(), j) }(j)
	}
	for range jobs {
		assert.NoError(t, <-done)
	}
	for _, j := range jobs {
		assert.Equal(t, model.StatusCompleted, f.jobs.lastStatus(j.ID()))
	}
}

func TestSupervisor_ExtractionDoesNotRerun(t *testing.T) {
	script := `#!/bin/sh
printf '%s\n' '{"type":"assistant","message":{"content":[{"type":"text","text":"===DECISION===\nACTION: split the handler\nREASONING: keeps each route testable\n===END==="}]}}'
printf '%s\n' '{"type":"result","subtype":"success","is_error":false,"session_id":"sess-9"}'
`
	f := newSupervisorFixture(t, script)
	j := newTestJob(t, "")
	require.NoError(t, f.jobs.Save(context.Background(), j))

	// a decision is already stored for this job
	seeded, err := job.NewDecision(j.ID(), "seeded action", "seeded reasoning", nil, model.CategoryOther)
	require.NoError(t, err)
	require.NoError(t, f.insight.SaveDecisions(context.Background(), []*job.Decision{seeded}))

	require.NoError(t, f.sup.Run(context.Background(), j))

	decisions, err := f.insight.FindDecisionsByJobID(context.Background(), j.ID())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "seeded action", decisions[0].Action)
}
