package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/codepulse/internal/domain/commit"
	"github.com/rpggio/codepulse/internal/domain/summary"
	"github.com/rpggio/codepulse/internal/repository"
)

// CommitRepository implements repository.CommitRepository for SQLite
type CommitRepository struct {
	db *DB
}

// NewCommitRepository creates a new CommitRepository
func NewCommitRepository(db *DB) *CommitRepository {
	return &CommitRepository{db: db}
}

// Create stores an observed commit and counts it toward its day. The
// count outlives the commit row.
func (r *CommitRepository) Create(ctx context.Context, c *commit.Commit) error {
	if c.ID == "" || c.CommitHash == "" {
		return repository.ErrInvalidInput
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin commit insert: %w", err)
	}
	defer tx.Rollback()

	day := summary.Day(c.Timestamp, r.db.loc)
	query := `
		INSERT INTO git_commits (
			id, project_path, commit_hash, message, author, author_email,
			timestamp, day, files_changed, lines_added, lines_deleted, branch, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		c.ID,
		c.ProjectPath,
		c.CommitHash,
		c.Message,
		c.Author,
		c.AuthorEmail,
		toMillis(c.Timestamp),
		day,
		c.FilesChanged,
		c.LinesAdded,
		c.LinesDeleted,
		nullableString(c.Branch),
		toMillis(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create commit: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO daily_commit_counts (day, project_path, commit_count)
		VALUES (?, ?, 1)
		ON CONFLICT (day, project_path) DO UPDATE SET commit_count = commit_count + 1
	`, day, c.ProjectPath); err != nil {
		return fmt.Errorf("failed to count commit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert: %w", err)
	}
	return nil
}

// ListUnsynced returns up to limit stored commits, oldest first
func (r *CommitRepository) ListUnsynced(ctx context.Context, limit int) ([]commit.Commit, error) {
	query := `
		SELECT
			id, project_path, commit_hash, message, author, author_email,
			timestamp, files_changed, lines_added, lines_deleted, branch
		FROM git_commits
		ORDER BY timestamp ASC, created_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits: %w", err)
	}
	defer rows.Close()

	var commits []commit.Commit
	for rows.Next() {
		var c commit.Commit
		var timestamp int64
		var branch sql.NullString
		if err := rows.Scan(
			&c.ID,
			&c.ProjectPath,
			&c.CommitHash,
			&c.Message,
			&c.Author,
			&c.AuthorEmail,
			&timestamp,
			&c.FilesChanged,
			&c.LinesAdded,
			&c.LinesDeleted,
			&branch,
		); err != nil {
			return nil, fmt.Errorf("failed to scan commit: %w", err)
		}
		c.Timestamp = fromMillis(timestamp)
		c.Branch = stringPtr(branch)
		commits = append(commits, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commit rows: %w", err)
	}

	return commits, nil
}

// Delete removes exactly the given commits
func (r *CommitRepository) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `DELETE FROM git_commits WHERE id IN (` + placeholders(len(ids)) + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete commits: %w", err)
	}
	return nil
}
