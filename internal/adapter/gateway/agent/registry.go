package agent

import (
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
)

// process holds the handles of one live agent process
type process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	done  chan struct{} // closed once the process has been reaped

	stdinMu     sync.Mutex
	stdinClosed bool
}

// closeStdin closes the input stream once; later calls are no-ops
func (p *process) closeStdin() {
	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()
	if p.stdinClosed {
		return
	}
	p.stdinClosed = true
	_ = p.stdin.Close()
}

// writeLine writes one line of input to the process.
// Returns false when the input stream is already closed.
func (p *process) writeLine(line string) bool {
	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()
	if p.stdinClosed {
		return false
	}
	if _, err := io.WriteString(p.stdin, line+"\n"); err != nil {
		return false
	}
	return true
}

// registry tracks live processes by job id.
// It guarantees at most one live process per job.
type registry struct {
	mu    sync.Mutex
	procs map[string]*process
}

func newRegistry() *registry {
	return &registry{procs: make(map[string]*process)}
}

func (r *registry) register(id model.JobID, p *process) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.procs[id.String()]; exists {
		return fmt.Errorf("job %s already has a live process", id.String())
	}
	r.procs[id.String()] = p
	return nil
}

func (r *registry) deregister(id model.JobID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.procs, id.String())
}

func (r *registry) lookup(id model.JobID) (*process, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.procs[id.String()]
	return p, ok
}

func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}
