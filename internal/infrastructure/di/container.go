package di

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deerun/internal/adapter/gateway/agent"
	"github.com/YoshitsuguKoike/deerun/internal/adapter/gateway/tracker"
	"github.com/YoshitsuguKoike/deerun/internal/application/port/output"
	"github.com/YoshitsuguKoike/deerun/internal/application/service"
	jobuc "github.com/YoshitsuguKoike/deerun/internal/application/usecase/job"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/repository"
	"github.com/YoshitsuguKoike/deerun/internal/infrastructure/config"
	"github.com/YoshitsuguKoike/deerun/internal/infrastructure/logstore"
	"github.com/YoshitsuguKoike/deerun/internal/infrastructure/persistence/sqlite"
	"github.com/YoshitsuguKoike/deerun/internal/infrastructure/workspace"
)

// Container wires every component together. Construction opens the
// database, applies migrations and runs startup recovery, so a built
// container is ready to accept triggers.
type Container struct {
	Config  *config.Config
	Manager *jobuc.Manager

	db          *sql.DB
	jobRepo     repository.JobRepository
	copyRepo    repository.WorkingCopyRepository
	insightRepo repository.InsightRepository
	recovered   []model.JobID
}

// NewContainer builds the full object graph
func NewContainer(cfg *config.Config, logger output.Logger) (*Container, error) {
	for _, dir := range []string{cfg.Home, cfg.WorktreeDir, cfg.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	if err := sqlite.NewMigrator(db).Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	jobRepo := sqlite.NewJobRepository(db)
	copyRepo := sqlite.NewWorkingCopyRepository(db)
	insightRepo := sqlite.NewInsightRepository(db)

	logs := logstore.NewStore(afero.NewOsFs())
	cancels := service.NewCancelService()
	insights := service.NewInsightService(insightRepo, logs)
	allocator := workspace.NewAllocator(copyRepo, cfg.WorktreeDir)

	trackerGW, err := tracker.NewTrackerGateway(cfg.Tracker, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	supervisor := agent.NewSupervisor(
		agent.Config{
			Bin:         cfg.AgentBin,
			ExtraPaths:  cfg.ExtraPaths,
			GracePeriod: cfg.GracePeriod(),
		},
		jobRepo, insightRepo, logs, cancels, trackerGW, logger,
	)

	manager := jobuc.NewManager(
		jobuc.Config{MainRepoPath: cfg.MainRepoPath, LogDir: cfg.LogDir},
		jobRepo, supervisor, allocator, cancels, insights, logs, logger,
	)

	// stale RUNNING rows predate this process; flag them before any
	// new trigger is accepted
	recovered, err := manager.RecoverInterrupted(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Container{
		Config:      cfg,
		Manager:     manager,
		db:          db,
		jobRepo:     jobRepo,
		copyRepo:    copyRepo,
		insightRepo: insightRepo,
		recovered:   recovered,
	}, nil
}

// RecoveredJobs returns the jobs startup recovery marked interrupted
func (c *Container) RecoveredJobs() []model.JobID {
	return c.recovered
}

// JobRepository exposes the job store for read-only CLI surfaces
func (c *Container) JobRepository() repository.JobRepository {
	return c.jobRepo
}

// Close waits for detached runs and releases the database
func (c *Container) Close() error {
	c.Manager.Wait()
	return c.db.Close()
}
