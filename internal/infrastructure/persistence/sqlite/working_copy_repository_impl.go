package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model/workingcopy"
	"github.com/YoshitsuguKoike/deerun/internal/domain/repository"
)

// WorkingCopyRepositoryImpl implements repository.WorkingCopyRepository with SQLite
type WorkingCopyRepositoryImpl struct {
	db *sql.DB
}

// NewWorkingCopyRepository creates a new SQLite-based working copy repository
func NewWorkingCopyRepository(db *sql.DB) repository.WorkingCopyRepository {
	return &WorkingCopyRepositoryImpl{db: db}
}

// Save persists a working copy record. The UNIQUE constraint on issue_key
// enforces at most one working copy per issue.
func (r *WorkingCopyRepositoryImpl) Save(ctx context.Context, wc *workingcopy.WorkingCopy) error {
	query := `
		INSERT OR REPLACE INTO working_copies (id, issue_key, path, branch, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		wc.ID(),
		wc.IssueKey().String(),
		wc.Path(),
		wc.Branch(),
		wc.CreatedAt().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save working copy failed: %w", err)
	}
	return nil
}

// FindByIssueKey retrieves the record for an issue key
func (r *WorkingCopyRepositoryImpl) FindByIssueKey(ctx context.Context, key model.IssueKey) (*workingcopy.WorkingCopy, error) {
	query := `SELECT id, issue_key, path, branch, created_at FROM working_copies WHERE issue_key = ?`

	wc, err := scanWorkingCopy(r.db.QueryRowContext(ctx, query, key.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find working copy failed: %w", err)
	}
	return wc, nil
}

// List retrieves all working copy records
func (r *WorkingCopyRepositoryImpl) List(ctx context.Context) ([]*workingcopy.WorkingCopy, error) {
	query := `SELECT id, issue_key, path, branch, created_at FROM working_copies ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list working copies failed: %w", err)
	}
	defer rows.Close()

	var copies []*workingcopy.WorkingCopy
	for rows.Next() {
		wc, err := scanWorkingCopy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan working copy failed: %w", err)
		}
		copies = append(copies, wc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate working copies failed: %w", err)
	}

	return copies, nil
}

// Delete removes the record for an issue key
func (r *WorkingCopyRepositoryImpl) Delete(ctx context.Context, key model.IssueKey) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM working_copies WHERE issue_key = ?`, key.String())
	if err != nil {
		return fmt.Errorf("delete working copy failed: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("working copy not found: %s", key)
	}
	return nil
}

func scanWorkingCopy(row rowScanner) (*workingcopy.WorkingCopy, error) {
	var id, issueKeyRaw, path, branch, createdRaw string

	if err := row.Scan(&id, &issueKeyRaw, &path, &branch, &createdRaw); err != nil {
		return nil, err
	}

	issueKey, err := model.NewIssueKeyFromString(issueKeyRaw)
	if err != nil {
		return nil, err
	}

	createdAt, err := parseStoredTime(createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return workingcopy.Reconstruct(id, issueKey, path, branch, createdAt), nil
}
