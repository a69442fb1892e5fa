package job

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/YoshitsuguKoike/deerun/internal/application/port/output"
	"github.com/YoshitsuguKoike/deerun/internal/application/service"
	"github.com/YoshitsuguKoike/deerun/internal/domain/repository"
)

// Config carries the manager's environment-derived settings
type Config struct {
	MainRepoPath string // shared checkout used when isolation degrades
	LogDir       string // directory for per-job durable logs
}

// Manager drives the job lifecycle: triggering, approval, rejection,
// recovery and the read model. It owns no process state itself; the
// supervisor does, and the manager talks to it through its port.
type Manager struct {
	cfg        Config
	jobs       repository.JobRepository
	supervisor output.Supervisor
	allocator  output.WorkspaceAllocator
	cancels    *service.CancelService
	insights   *service.InsightService
	logs       output.LogStore
	log        output.Logger
	validate   *validator.Validate

	// tracks detached supervisor runs so short-lived callers can drain
	wg sync.WaitGroup
}

func NewManager(
	cfg Config,
	jobs repository.JobRepository,
	supervisor output.Supervisor,
	allocator output.WorkspaceAllocator,
	cancels *service.CancelService,
	insights *service.InsightService,
	logs output.LogStore,
	logger output.Logger,
) *Manager {
	return &Manager{
		cfg:        cfg,
		jobs:       jobs,
		supervisor: supervisor,
		allocator:  allocator,
		cancels:    cancels,
		insights:   insights,
		logs:       logs,
		log:        logger,
		validate:   validator.New(),
	}
}

// Wait blocks until every detached supervisor run dispatched by this
// manager has finished. CLI invocations call it before exiting.
func (m *Manager) Wait() {
	m.wg.Wait()
}
