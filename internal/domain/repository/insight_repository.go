package repository

import (
	"context"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model/job"
)

// InsightRepository persists mined decisions and confidence assessments.
// Callers are responsible for only persisting results not already stored;
// the repository itself performs plain inserts.
type InsightRepository interface {
	// SaveDecisions persists a batch of decisions for one job
	SaveDecisions(ctx context.Context, decisions []*job.Decision) error

	// FindDecisionsByJobID retrieves all decisions for a job, oldest first
	FindDecisionsByJobID(ctx context.Context, id model.JobID) ([]*job.Decision, error)

	// SaveConfidence persists the confidence assessment for a job,
	// replacing any previous one (at most one per job)
	SaveConfidence(ctx context.Context, c *job.ConfidenceAssessment) error

	// FindConfidenceByJobID retrieves the assessment for a job.
	// Returns (nil, nil) when absent.
	FindConfidenceByJobID(ctx context.Context, id model.JobID) (*job.ConfidenceAssessment, error)
}
