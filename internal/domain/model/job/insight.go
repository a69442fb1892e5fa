package job

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
)

// Decision is a mined record of a design choice the agent made during a job.
// Decisions have no existence independent of their owning job.
type Decision struct {
	ID           string
	JobID        model.JobID
	Action       string
	Reasoning    string
	Alternatives []string
	Category     model.DecisionCategory
	CreatedAt    time.Time
}

// NewDecision creates a Decision owned by the given job
func NewDecision(jobID model.JobID, action, reasoning string, alternatives []string, category model.DecisionCategory) (*Decision, error) {
	if action == "" {
		return nil, errors.New("decision action cannot be empty")
	}
	if !category.IsValid() {
		category = model.CategoryOther
	}
	return &Decision{
		ID:           newInsightID(),
		JobID:        jobID,
		Action:       action,
		Reasoning:    reasoning,
		Alternatives: alternatives,
		Category:     category,
		CreatedAt:    time.Now(),
	}, nil
}

// ConfidenceAssessment is the agent's self-reported confidence for a job.
// At most one exists per job.
type ConfidenceAssessment struct {
	ID         string
	JobID      model.JobID
	Score      int // 0-100
	Assessment string
	Reasoning  string
	Risks      []string
	CreatedAt  time.Time
}

// NewConfidenceAssessment creates a ConfidenceAssessment owned by the given job
func NewConfidenceAssessment(jobID model.JobID, score int, assessment, reasoning string, risks []string) (*ConfidenceAssessment, error) {
	if score < 0 || score > 100 {
		return nil, errors.New("confidence score must be between 0 and 100")
	}
	return &ConfidenceAssessment{
		ID:         newInsightID(),
		JobID:      jobID,
		Score:      score,
		Assessment: assessment,
		Reasoning:  reasoning,
		Risks:      risks,
		CreatedAt:  time.Now(),
	}, nil
}

// newInsightID generates a ULID for decision/confidence records
func newInsightID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
