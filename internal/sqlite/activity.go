package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rpggio/codepulse/internal/domain/activity"
	"github.com/rpggio/codepulse/internal/domain/summary"
)

// ActivityRepository implements repository.ActivityRepository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Insert stores one raw activity row
func (r *ActivityRepository) Insert(ctx context.Context, entry *activity.Log) error {
	query := `
		INSERT INTO activity_logs (
			project_path, file_path, language, timestamp, day,
			duration_ms, editor_name, commit_hash, branch
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.ProjectPath,
		entry.FilePath,
		entry.Language,
		toMillis(entry.Timestamp),
		summary.Day(entry.Timestamp, r.db.loc),
		entry.Duration.Milliseconds(),
		entry.EditorName,
		nullableString(entry.CommitHash),
		nullableString(entry.Branch),
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}

	return nil
}

// List returns stored activity rows matching the given filters, newest first
func (r *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Log, error) {
	query := `
		SELECT
			id, project_path, file_path, language, timestamp,
			duration_ms, editor_name, commit_hash, branch
		FROM activity_logs
	`

	args := []interface{}{}
	conditions := []string{}

	if opts.ProjectPath != "" {
		conditions = append(conditions, "project_path = ?")
		args = append(args, opts.ProjectPath)
	}
	if opts.FilePath != "" {
		conditions = append(conditions, "file_path = ?")
		args = append(args, opts.FilePath)
	}
	if !opts.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, toMillis(opts.Since))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var entries []activity.Log
	for rows.Next() {
		var entry activity.Log
		var timestamp, durationMS int64
		var commitHash, branch sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.ProjectPath,
			&entry.FilePath,
			&entry.Language,
			&timestamp,
			&durationMS,
			&entry.EditorName,
			&commitHash,
			&branch,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entry.Timestamp = fromMillis(timestamp)
		entry.Duration = millis(durationMS)
		entry.CommitHash = stringPtr(commitHash)
		entry.Branch = stringPtr(branch)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return entries, nil
}

// DeleteBefore removes raw rows and daily commit counts whose calendar
// day is before day. It returns the number of raw rows removed.
func (r *ActivityRepository) DeleteBefore(ctx context.Context, day string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM activity_logs WHERE day < ?`, day)
	if err != nil {
		return 0, fmt.Errorf("failed to delete activity: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_commit_counts WHERE day < ?`, day); err != nil {
		return 0, fmt.Errorf("failed to delete commit counts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return deleted, nil
}
