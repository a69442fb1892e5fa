package service

import (
	"context"
	"fmt"

	"github.com/YoshitsuguKoike/deerun/internal/application/port/output"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model/job"
	"github.com/YoshitsuguKoike/deerun/internal/domain/repository"
	"github.com/YoshitsuguKoike/deerun/internal/domain/service/insight"
)

// InsightService serves mined decisions and confidence for completed jobs.
// Extraction runs lazily on first read when a completed job has no stored
// results yet; once a result exists it is never re-mined.
type InsightService struct {
	insights repository.InsightRepository
	logs     output.LogStore
}

func NewInsightService(insights repository.InsightRepository, logs output.LogStore) *InsightService {
	return &InsightService{insights: insights, logs: logs}
}

// ForJob returns the decisions and confidence of a job, mining them from
// the job log first if the job completed without stored results.
func (s *InsightService) ForJob(ctx context.Context, j *job.Job) ([]*job.Decision, *job.ConfidenceAssessment, error) {
	id := j.ID()

	decisions, err := s.insights.FindDecisionsByJobID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load decisions: %w", err)
	}
	confidence, err := s.insights.FindConfidenceByJobID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load confidence: %w", err)
	}

	if j.Status() != model.StatusCompleted {
		return decisions, confidence, nil
	}
	if len(decisions) > 0 || confidence != nil {
		return decisions, confidence, nil
	}

	raw, err := s.logs.ReadAll(j.LogPath())
	if err != nil {
		return nil, nil, fmt.Errorf("read job log: %w", err)
	}
	transcript := insight.Reconstruct(raw)

	mined := insight.BindDecisions(id, insight.ExtractDecisions(transcript))
	if len(mined) > 0 {
		if err := s.insights.SaveDecisions(ctx, mined); err != nil {
			return nil, nil, fmt.Errorf("save decisions: %w", err)
		}
		decisions = mined
	}

	if ec := insight.ExtractConfidence(transcript); ec != nil {
		c, err := job.NewConfidenceAssessment(id, ec.Score, ec.Assessment, ec.Reasoning, ec.Risks)
		if err == nil {
			if saveErr := s.insights.SaveConfidence(ctx, c); saveErr != nil {
				return nil, nil, fmt.Errorf("save confidence: %w", saveErr)
			}
			confidence = c
		}
	}

	return decisions, confidence, nil
}
