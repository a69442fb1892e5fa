package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/YoshitsuguKoike/deerun/internal/application/port/output"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model/job"
	"github.com/YoshitsuguKoike/deerun/internal/domain/repository"
	"github.com/YoshitsuguKoike/deerun/internal/domain/service/insight"
)

const (
	defaultAgentBin    = "claude"
	defaultGracePeriod = 5 * time.Second

	// stream-json lines carrying tool results can be large
	maxScanBuffer = 4 * 1024 * 1024
)

// CancelFlags is the cancellation surface the streaming loop consults
// between lines. Satisfied by service.CancelService.
type CancelFlags interface {
	IsCancelled(id model.JobID) bool
	Clear(id model.JobID)
}

// Config tunes how agent processes are spawned and torn down
type Config struct {
	Bin         string        // agent CLI binary
	ExtraPaths  []string      // prepended to PATH of spawned processes
	GracePeriod time.Duration // delay between group terminate and hard kill
}

// Supervisor owns the external agent process of each job. It spawns the
// agent CLI in the job's working copy, drains its stream-json output
// line by line into the durable log, watches for terminal and approval
// events, and tears processes down on demand.
type Supervisor struct {
	cfg      Config
	jobs     repository.JobRepository
	insights repository.InsightRepository
	logs     output.LogStore
	cancels  CancelFlags
	tracker  output.TrackerGateway
	log      output.Logger

	registry *registry
}

// NewSupervisor creates a Supervisor. Zero-value config fields fall
// back to defaults.
func NewSupervisor(
	cfg Config,
	jobs repository.JobRepository,
	insights repository.InsightRepository,
	logs output.LogStore,
	cancels CancelFlags,
	tracker output.TrackerGateway,
	logger output.Logger,
) *Supervisor {
	if cfg.Bin == "" {
		cfg.Bin = defaultAgentBin
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaultGracePeriod
	}
	return &Supervisor{
		cfg:      cfg,
		jobs:     jobs,
		insights: insights,
		logs:     logs,
		cancels:  cancels,
		tracker:  tracker,
		log:      logger,
		registry: newRegistry(),
	}
}

// IsRunning reports whether the job has a live registered process
func (s *Supervisor) IsRunning(id model.JobID) bool {
	_, ok := s.registry.lookup(id)
	return ok
}

// Run spawns the agent process for j and blocks until it exits.
// The job's resulting status is persisted before Run returns.
func (s *Supervisor) Run(ctx context.Context, j *job.Job) error {
	id := j.ID()

	workdir := j.WorkingCopyPath()
	if info, err := os.Stat(workdir); err != nil || !info.IsDir() {
		s.persistStatus(ctx, j, model.StatusBlocked, fmt.Sprintf("working copy unavailable: %s", workdir))
		return fmt.Errorf("job %s: working copy unavailable: %s", id.String(), workdir)
	}

	resume := j.Status() == model.StatusApprovedResume && j.SessionID() != ""

	cmd := exec.Command(s.cfg.Bin, buildArgs(j, resume)...)
	cmd.Dir = workdir
	cmd.Env = s.augmentedEnv()
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.persistStatus(ctx, j, model.StatusFailed, fmt.Sprintf("spawn failed: %v", err))
		return fmt.Errorf("open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.persistStatus(ctx, j, model.StatusFailed, fmt.Sprintf("spawn failed: %v", err))
		return fmt.Errorf("open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.persistStatus(ctx, j, model.StatusFailed, fmt.Sprintf("spawn failed: %v", err))
		return fmt.Errorf("open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		s.persistStatus(ctx, j, model.StatusFailed, fmt.Sprintf("spawn failed: %v", err))
		return fmt.Errorf("start agent process: %w", err)
	}

	p := &process{cmd: cmd, stdin: stdin, done: make(chan struct{})}
	if err := s.registry.register(id, p); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		close(p.done)
		return err
	}

	if err := s.persistStatus(ctx, j, model.StatusRunning, ""); err != nil {
		s.log.Warn("job %s: persist running status: %v", id.String(), err)
	}
	s.log.Info("job %s: agent process started (pid %d)", id.String(), cmd.Process.Pid)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.drainStderr(j, stderr)
	}()

	st, cancelled, readErr := s.drainStdout(ctx, j, stdout)

	wg.Wait()
	waitErr := cmd.Wait()
	// capture the flag before closing done: a rejection sets it before
	// calling Terminate and clears it only after Terminate returns, and
	// Terminate cannot return until done is closed
	cancelled = cancelled || s.cancels.IsCancelled(id)
	close(p.done)
	s.registry.deregister(id)
	defer s.cancels.Clear(id)

	if st.sessionID != "" {
		j.AttachSession(st.sessionID)
	}

	if cancelled {
		// the reject operation owns the terminal transition
		s.log.Info("job %s: cancelled, process torn down", id.String())
		return nil
	}

	return s.settle(ctx, j, st, waitErr, readErr)
}

// drainStdout reads the output stream one line at a time: every line is
// appended to the durable log, then inspected for session, approval and
// result events. Between lines it consults the cancellation flag.
func (s *Supervisor) drainStdout(ctx context.Context, j *job.Job, stdout io.Reader) (*streamState, bool, error) {
	id := j.ID()
	st := &streamState{}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanBuffer)

	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			if err := s.logs.Append(j.LogPath(), line); err != nil {
				s.log.Warn("job %s: append log line: %v", id.String(), err)
			}
			if st.observe(line) {
				s.markWaitingApproval(ctx, j)
			}
		}

		if s.cancels.IsCancelled(id) {
			p, ok := s.registry.lookup(id)
			if ok {
				s.stopAsync(p)
			}
			// unblock the child if the pipe is its only backpressure
			_, _ = io.Copy(io.Discard, stdout)
			return st, true, nil
		}
	}
	return st, false, scanner.Err()
}

// drainStderr appends diagnostic lines to the job log as-is
func (s *Supervisor) drainStderr(j *job.Job, stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanBuffer)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := s.logs.Append(j.LogPath(), line); err != nil {
			s.log.Warn("job %s: append stderr line: %v", j.ID().String(), err)
		}
	}
}

// markWaitingApproval transitions a running job to WAITING_APPROVAL.
// The stored status is authoritative: approval and resumption are
// persisted by the lifecycle manager on its own aggregate instance.
func (s *Supervisor) markWaitingApproval(ctx context.Context, j *job.Job) {
	if s.storedStatus(ctx, j) != model.StatusRunning {
		return
	}
	s.persistStatus(ctx, j, model.StatusWaitingApproval, "")
	s.log.Info("job %s: agent requested approval", j.ID().String())
}

// storedStatus reads the persisted status, falling back to the
// in-memory aggregate when the store cannot answer
func (s *Supervisor) storedStatus(ctx context.Context, j *job.Job) model.JobStatus {
	if fresh, err := s.jobs.Find(ctx, j.ID()); err == nil && fresh != nil {
		return fresh.Status()
	}
	return j.Status()
}

// settle decides and persists the terminal status of a finished process
func (s *Supervisor) settle(ctx context.Context, j *job.Job, st *streamState, waitErr, readErr error) error {
	id := j.ID()

	switch {
	case s.storedStatus(ctx, j) == model.StatusWaitingApproval:
		s.persistStatus(ctx, j, model.StatusFailed, "process exited while awaiting approval")
		s.notifyFailed(ctx, j)
		return nil

	case readErr != nil:
		s.persistStatus(ctx, j, model.StatusFailed, fmt.Sprintf("read output stream: %v", readErr))
		s.notifyFailed(ctx, j)
		return nil

	case waitErr != nil:
		msg := fmt.Sprintf("agent process: %v", waitErr)
		if st.resultText != "" {
			msg = fmt.Sprintf("%s: %s", msg, st.resultText)
		}
		s.persistStatus(ctx, j, model.StatusFailed, msg)
		s.notifyFailed(ctx, j)
		return nil

	case st.resultSeen && st.resultErr:
		msg := st.resultText
		if msg == "" {
			msg = "agent reported an error result"
		}
		s.persistStatus(ctx, j, model.StatusFailed, msg)
		s.notifyFailed(ctx, j)
		return nil
	}

	s.extractInsights(ctx, j)

	cost := &model.CostMetrics{
		TotalUSD:     st.costUSD,
		InputTokens:  st.inputTokens,
		OutputTokens: st.outputTokens,
	}
	if err := j.MarkCompleted(st.sessionID, cost); err != nil {
		s.log.Warn("job %s: mark completed: %v", id.String(), err)
	}
	if err := s.jobs.UpdateCompleted(ctx, id, st.sessionID, cost); err != nil {
		s.log.Error("job %s: persist completion: %v", id.String(), err)
		return fmt.Errorf("persist completion: %w", err)
	}
	s.log.Info("job %s: completed (cost $%.4f)", id.String(), cost.TotalUSD)

	s.notifyCompleted(ctx, j)
	return nil
}

// extractInsights mines decisions and confidence from the full log.
// Extraction never runs twice: results already stored are kept as-is.
func (s *Supervisor) extractInsights(ctx context.Context, j *job.Job) {
	id := j.ID()

	raw, err := s.logs.ReadAll(j.LogPath())
	if err != nil {
		s.log.Warn("job %s: read log for extraction: %v", id.String(), err)
		return
	}
	transcript := insight.Reconstruct(raw)

	existing, err := s.insights.FindDecisionsByJobID(ctx, id)
	if err != nil {
		s.log.Warn("job %s: load stored decisions: %v", id.String(), err)
	} else if len(existing) == 0 {
		decisions := insight.BindDecisions(id, insight.ExtractDecisions(transcript))
		if len(decisions) > 0 {
			if err := s.insights.SaveDecisions(ctx, decisions); err != nil {
				s.log.Warn("job %s: save decisions: %v", id.String(), err)
			}
		}
	}

	stored, err := s.insights.FindConfidenceByJobID(ctx, id)
	if err != nil {
		s.log.Warn("job %s: load stored confidence: %v", id.String(), err)
		return
	}
	if stored != nil {
		return
	}
	if ec := insight.ExtractConfidence(transcript); ec != nil {
		c, err := job.NewConfidenceAssessment(id, ec.Score, ec.Assessment, ec.Reasoning, ec.Risks)
		if err != nil {
			s.log.Warn("job %s: bind confidence: %v", id.String(), err)
			return
		}
		if err := s.insights.SaveConfidence(ctx, c); err != nil {
			s.log.Warn("job %s: save confidence: %v", id.String(), err)
		}
	}
}

// SendInput forwards one line of operator input to a running job.
// Returns false when the job has no live registered process.
func (s *Supervisor) SendInput(id model.JobID, text string) bool {
	p, ok := s.registry.lookup(id)
	if !ok {
		return false
	}
	payload, err := encodeInputEvent(text)
	if err != nil {
		s.log.Warn("job %s: encode input event: %v", id.String(), err)
		return false
	}
	return p.writeLine(payload)
}

// Terminate tears down a job's process: input stream first, then the
// process group, then a hard kill after the grace period. Calling it
// on a job with no live process is a no-op.
func (s *Supervisor) Terminate(id model.JobID) error {
	p, ok := s.registry.lookup(id)
	if !ok {
		return nil
	}

	p.closeStdin()

	pid := p.cmd.Process.Pid
	if err := signalGroup(pid, terminateSignal()); err != nil {
		s.log.Debug("job %s: group terminate: %v", id.String(), err)
	}

	select {
	case <-p.done:
	case <-time.After(s.cfg.GracePeriod):
		if err := signalGroup(pid, killSignal()); err != nil {
			s.log.Debug("job %s: group kill: %v", id.String(), err)
		}
	}

	s.registry.deregister(id)
	return nil
}

// stopAsync signals the process group without blocking the caller.
// The hard kill fires only if the process outlives the grace period.
func (s *Supervisor) stopAsync(p *process) {
	p.closeStdin()
	pid := p.cmd.Process.Pid
	if err := signalGroup(pid, terminateSignal()); err != nil {
		s.log.Debug("group terminate pid %d: %v", pid, err)
	}
	go func() {
		select {
		case <-p.done:
		case <-time.After(s.cfg.GracePeriod):
			_ = signalGroup(pid, killSignal())
		}
	}()
}

// persistStatus applies a status transition to the aggregate and the store
func (s *Supervisor) persistStatus(ctx context.Context, j *job.Job, status model.JobStatus, errMsg string) error {
	if status == model.StatusFailed {
		if err := j.MarkFailed(errMsg); err != nil {
			s.log.Warn("job %s: transition to %s: %v", j.ID().String(), status.String(), err)
		}
	} else {
		if err := j.UpdateStatus(status); err != nil {
			s.log.Warn("job %s: transition to %s: %v", j.ID().String(), status.String(), err)
		}
		if errMsg != "" {
			j.RecordWarning(errMsg)
		}
	}
	return s.jobs.UpdateStatus(ctx, j.ID(), status, errMsg)
}

func (s *Supervisor) notifyCompleted(ctx context.Context, j *job.Job) {
	comment := fmt.Sprintf("Job %s completed: %s", j.ID().String(), j.Command())
	if err := s.tracker.CloseIssueWithComment(ctx, j.Repo(), j.IssueNum(), comment); err != nil {
		s.log.Warn("job %s: close issue: %v", j.ID().String(), err)
	}
	s.removeTriggerLabel(ctx, j)
}

func (s *Supervisor) notifyFailed(ctx context.Context, j *job.Job) {
	s.removeTriggerLabel(ctx, j)
}

func (s *Supervisor) removeTriggerLabel(ctx context.Context, j *job.Job) {
	if j.Label() == "" {
		return
	}
	if err := s.tracker.RemoveLabel(ctx, j.Repo(), j.IssueNum(), j.Label()); err != nil {
		s.log.Warn("job %s: remove label %s: %v", j.ID().String(), j.Label(), err)
	}
}

func buildArgs(j *job.Job, resume bool) []string {
	args := []string{
		"-p", buildPrompt(j),
		"--verbose",
		"--output-format", "stream-json",
		"--input-format", "stream-json",
	}
	if resume {
		args = append(args, "--resume", j.SessionID())
	}
	return args
}

func buildPrompt(j *job.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Work on issue #%d of %s: %s\n\n", j.IssueNum(), j.Repo(), j.IssueTitle())
	fmt.Fprintf(&b, "Task: %s\n\n", j.Command())
	fmt.Fprintf(&b, "If a step needs human sign-off before continuing, print a line containing %s and wait for further input.\n", approvalMarker)
	return b.String()
}

// encodeInputEvent wraps operator text as a single-line user message
func encodeInputEvent(text string) (string, error) {
	event := map[string]interface{}{
		"type": "user",
		"message": map[string]interface{}{
			"role": "user",
			"content": []map[string]string{
				{"type": "text", "text": text},
			},
		},
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// augmentedEnv extends PATH with common tool install locations so the
// agent finds node, package managers and language toolchains even when
// the orchestrator runs under a minimal service environment.
func (s *Supervisor) augmentedEnv() []string {
	extra := append([]string{}, s.cfg.ExtraPaths...)
	if home, err := os.UserHomeDir(); err == nil {
		extra = append(extra,
			filepath.Join(home, ".local", "bin"),
			filepath.Join(home, "bin"),
			filepath.Join(home, ".npm-global", "bin"),
		)
	}
	extra = append(extra, "/usr/local/bin", "/opt/homebrew/bin")

	sep := string(os.PathListSeparator)
	merged := strings.Join(extra, sep) + sep + os.Getenv("PATH")

	env := os.Environ()
	for i, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			env[i] = "PATH=" + merged
			return env
		}
	}
	return append(env, "PATH="+merged)
}
