package job

import (
	"context"
	"fmt"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
)

// RecoverInterrupted marks every job still recorded as RUNNING as
// INTERRUPTED. It runs at boot, before any new trigger is accepted:
// no in-memory process registry survives a restart, so a running
// status found at startup is necessarily stale.
func (m *Manager) RecoverInterrupted(ctx context.Context) ([]model.JobID, error) {
	ids, err := m.jobs.MarkInterrupted(ctx)
	if err != nil {
		return nil, fmt.Errorf("recover interrupted jobs: %w", err)
	}
	for _, id := range ids {
		m.log.Warn("job %s: marked interrupted at startup", id.String())
	}
	return ids, nil
}

// CleanWorkingCopy removes the working copy recorded for an issue key
func (m *Manager) CleanWorkingCopy(ctx context.Context, rawKey string) error {
	key, err := model.NewIssueKeyFromString(rawKey)
	if err != nil {
		return err
	}
	if err := m.allocator.Cleanup(ctx, key, m.cfg.MainRepoPath); err != nil {
		return fmt.Errorf("clean working copy %s: %w", key.String(), err)
	}
	return nil
}
