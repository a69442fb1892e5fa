package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model/job"
	"github.com/YoshitsuguKoike/deerun/internal/domain/repository"
)

// InsightRepositoryImpl implements repository.InsightRepository with SQLite
type InsightRepositoryImpl struct {
	db *sql.DB
}

// NewInsightRepository creates a new SQLite-based insight repository
func NewInsightRepository(db *sql.DB) repository.InsightRepository {
	return &InsightRepositoryImpl{db: db}
}

// SaveDecisions persists a batch of decisions for one job
func (r *InsightRepositoryImpl) SaveDecisions(ctx context.Context, decisions []*job.Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO job_decisions (id, job_id, action, reasoning, alternatives, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, d := range decisions {
		_, err := tx.ExecContext(ctx, query,
			d.ID,
			d.JobID.String(),
			d.Action,
			d.Reasoning,
			strings.Join(d.Alternatives, ";"),
			d.Category.String(),
			d.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("save decision failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit decisions failed: %w", err)
	}
	return nil
}

// FindDecisionsByJobID retrieves all decisions for a job, oldest first
func (r *InsightRepositoryImpl) FindDecisionsByJobID(ctx context.Context, id model.JobID) ([]*job.Decision, error) {
	query := `
		SELECT id, job_id, action, reasoning, alternatives, category, created_at
		FROM job_decisions
		WHERE job_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, id.String())
	if err != nil {
		return nil, fmt.Errorf("query decisions failed: %w", err)
	}
	defer rows.Close()

	var decisions []*job.Decision
	for rows.Next() {
		var d job.Decision
		var jobIDRaw, alternatives, category, createdRaw string

		if err := rows.Scan(&d.ID, &jobIDRaw, &d.Action, &d.Reasoning, &alternatives, &category, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan decision failed: %w", err)
		}

		d.JobID, err = model.NewJobIDFromString(jobIDRaw)
		if err != nil {
			return nil, err
		}
		d.Alternatives = splitStored(alternatives)
		d.Category = model.DecisionCategory(category)
		d.CreatedAt, err = parseStoredTime(createdRaw)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}

		decisions = append(decisions, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions failed: %w", err)
	}

	return decisions, nil
}

// SaveConfidence persists the confidence assessment for a job.
// The UNIQUE constraint on job_id keeps it at most one per job.
func (r *InsightRepositoryImpl) SaveConfidence(ctx context.Context, c *job.ConfidenceAssessment) error {
	query := `
		INSERT INTO job_confidence (id, job_id, score, assessment, reasoning, risks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			score = excluded.score,
			assessment = excluded.assessment,
			reasoning = excluded.reasoning,
			risks = excluded.risks
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.JobID.String(),
		c.Score,
		c.Assessment,
		c.Reasoning,
		strings.Join(c.Risks, ";"),
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save confidence failed: %w", err)
	}
	return nil
}

// FindConfidenceByJobID retrieves the assessment for a job
func (r *InsightRepositoryImpl) FindConfidenceByJobID(ctx context.Context, id model.JobID) (*job.ConfidenceAssessment, error) {
	query := `
		SELECT id, job_id, score, assessment, reasoning, risks, created_at
		FROM job_confidence
		WHERE job_id = ?
	`

	var c job.ConfidenceAssessment
	var jobIDRaw, risks, createdRaw string

	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&c.ID, &jobIDRaw, &c.Score, &c.Assessment, &c.Reasoning, &risks, &createdRaw,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find confidence failed: %w", err)
	}

	c.JobID, err = model.NewJobIDFromString(jobIDRaw)
	if err != nil {
		return nil, err
	}
	c.Risks = splitStored(risks)
	c.CreatedAt, err = parseStoredTime(createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &c, nil
}

// splitStored splits a semicolon-joined stored list, treating "" as nil
func splitStored(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ";")
}
