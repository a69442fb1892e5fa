package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model/job"
	"github.com/YoshitsuguKoike/deerun/internal/domain/repository"
)

// JobRepositoryImpl implements repository.JobRepository with SQLite
type JobRepositoryImpl struct {
	db *sql.DB
}

// NewJobRepository creates a new SQLite-based job repository
func NewJobRepository(db *sql.DB) repository.JobRepository {
	return &JobRepositoryImpl{db: db}
}

const jobColumns = `id, repo, issue_num, issue_title, command, label,
	working_copy_path, log_path, status, session_id,
	cost_usd, input_tokens, output_tokens,
	error_message, last_error, created_at, updated_at`

// Save persists a job, replacing any previous row with the same id
func (r *JobRepositoryImpl) Save(ctx context.Context, j *job.Job) error {
	query := `
		INSERT OR REPLACE INTO jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var costUSD sql.NullFloat64
	var inputTokens, outputTokens sql.NullInt64
	if cost := j.Cost(); cost != nil {
		costUSD = sql.NullFloat64{Float64: cost.TotalUSD, Valid: true}
		inputTokens = sql.NullInt64{Int64: int64(cost.InputTokens), Valid: true}
		outputTokens = sql.NullInt64{Int64: int64(cost.OutputTokens), Valid: true}
	}

	var sessionID sql.NullString
	if j.SessionID() != "" {
		sessionID = sql.NullString{String: j.SessionID(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		j.ID().String(),
		j.Repo(),
		j.IssueNum(),
		j.IssueTitle(),
		j.Command(),
		j.Label(),
		j.WorkingCopyPath(),
		j.LogPath(),
		j.Status().String(),
		sessionID,
		costUSD,
		inputTokens,
		outputTokens,
		j.ErrorMessage(),
		j.LastError(),
		j.CreatedAt().Value().UTC().Format(time.RFC3339Nano),
		j.UpdatedAt().Value().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save job failed: %w", err)
	}

	return nil
}

// Find retrieves a job by exact id
func (r *JobRepositoryImpl) Find(ctx context.Context, id model.JobID) (*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id.String())

	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find job failed: %w", err)
	}
	return j, nil
}

// FindFuzzy retrieves a job by exact id, falling back to a unique suffix match
func (r *JobRepositoryImpl) FindFuzzy(ctx context.Context, id string) (*job.Job, error) {
	jobID, err := model.NewJobIDFromString(id)
	if err != nil {
		return nil, fmt.Errorf("invalid job id: %w", err)
	}

	if j, err := r.Find(ctx, jobID); err != nil || j != nil {
		return j, err
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id LIKE ? ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query, "%"+id)
	if err != nil {
		return nil, fmt.Errorf("fuzzy find job failed: %w", err)
	}
	defer rows.Close()

	var matches []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job failed: %w", err)
		}
		matches = append(matches, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs failed: %w", err)
	}

	if len(matches) != 1 {
		// Zero or ambiguous; the caller decides how to report it
		return nil, nil
	}
	return matches[0], nil
}

// List retrieves all jobs, newest first
func (r *JobRepositoryImpl) List(ctx context.Context) ([]*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs failed: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job failed: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs failed: %w", err)
	}

	return jobs, nil
}

// UpdateStatus persists a status change together with an optional error message
func (r *JobRepositoryImpl) UpdateStatus(ctx context.Context, id model.JobID, status model.JobStatus, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = ?,
		    error_message = CASE WHEN ? != '' THEN ? ELSE error_message END,
		    last_error = CASE WHEN ? != '' THEN ? ELSE last_error END,
		    updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		status.String(),
		errMsg, errMsg,
		errMsg, errMsg,
		time.Now().UTC().Format(time.RFC3339Nano),
		id.String(),
	)
	if err != nil {
		return fmt.Errorf("update job status failed: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("job not found: %s", id)
	}
	return nil
}

// UpdateCompleted persists a terminal success with its session id and cost
func (r *JobRepositoryImpl) UpdateCompleted(ctx context.Context, id model.JobID, sessionID string, cost *model.CostMetrics) error {
	var costUSD sql.NullFloat64
	var inputTokens, outputTokens sql.NullInt64
	if cost != nil {
		costUSD = sql.NullFloat64{Float64: cost.TotalUSD, Valid: true}
		inputTokens = sql.NullInt64{Int64: int64(cost.InputTokens), Valid: true}
		outputTokens = sql.NullInt64{Int64: int64(cost.OutputTokens), Valid: true}
	}

	var session sql.NullString
	if sessionID != "" {
		session = sql.NullString{String: sessionID, Valid: true}
	}

	query := `
		UPDATE jobs
		SET status = ?, session_id = ?, cost_usd = ?, input_tokens = ?, output_tokens = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		model.StatusCompleted.String(),
		session,
		costUSD,
		inputTokens,
		outputTokens,
		time.Now().UTC().Format(time.RFC3339Nano),
		id.String(),
	)
	if err != nil {
		return fmt.Errorf("update job completed failed: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("job not found: %s", id)
	}
	return nil
}

// MarkInterrupted flags every RUNNING job as INTERRUPTED
func (r *JobRepositoryImpl) MarkInterrupted(ctx context.Context) ([]model.JobID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM jobs WHERE status = ?`, model.StatusRunning.String())
	if err != nil {
		return nil, fmt.Errorf("query running jobs failed: %w", err)
	}
	defer rows.Close()

	var ids []model.JobID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan job id failed: %w", err)
		}
		id, err := model.NewJobIDFromString(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate running jobs failed: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE status = ?`,
		model.StatusInterrupted.String(),
		time.Now().UTC().Format(time.RFC3339Nano),
		model.StatusRunning.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("mark interrupted failed: %w", err)
	}

	return ids, nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanJob
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*job.Job, error) {
	var (
		id, repo, issueTitle, command, label      string
		workingCopyPath, logPath, status          string
		errMsg, lastError, createdRaw, updatedRaw string
		issueNum                                  int
		sessionID                                 sql.NullString
		costUSD                                   sql.NullFloat64
		inputTokens, outputTokens                 sql.NullInt64
	)

	err := row.Scan(
		&id, &repo, &issueNum, &issueTitle, &command, &label,
		&workingCopyPath, &logPath, &status, &sessionID,
		&costUSD, &inputTokens, &outputTokens,
		&errMsg, &lastError, &createdRaw, &updatedRaw,
	)
	if err != nil {
		return nil, err
	}

	jobID, err := model.NewJobIDFromString(id)
	if err != nil {
		return nil, err
	}

	createdAt, err := parseStoredTime(createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := parseStoredTime(updatedRaw)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	var cost *model.CostMetrics
	if costUSD.Valid {
		cost = &model.CostMetrics{
			TotalUSD:     costUSD.Float64,
			InputTokens:  int(inputTokens.Int64),
			OutputTokens: int(outputTokens.Int64),
		}
	}

	return job.Reconstruct(
		jobID, repo, issueNum, issueTitle, command, label,
		workingCopyPath, logPath,
		model.JobStatus(status),
		sessionID.String,
		cost,
		errMsg, lastError,
		createdAt, updatedAt,
	), nil
}

func parseStoredTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", raw)
}
