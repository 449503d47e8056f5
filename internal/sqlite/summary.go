package sqlite

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rpggio/codepulse/internal/domain/summary"
)

// SummaryRepository implements repository.SummaryRepository for SQLite
type SummaryRepository struct {
	db *DB
}

// NewSummaryRepository creates a new SummaryRepository
func NewSummaryRepository(db *DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Rollup aggregates every raw row not yet summarized into new
// file_activity_summaries rows and marks those raw rows summarized.
// Returns the number of summaries created.
func (r *SummaryRepository) Rollup(ctx context.Context, now time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin rollup: %w", err)
	}
	defer tx.Rollback()

	var watermark int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM activity_logs WHERE summarized = 0`,
	).Scan(&watermark); err != nil {
		return 0, fmt.Errorf("failed to read rollup watermark: %w", err)
	}
	if watermark == 0 {
		return 0, nil
	}

	insert := `
		INSERT INTO file_activity_summaries (
			project_path, commit_hash, branch, file_path, language, editor_name,
			total_duration_ms, activity_count, first_activity_at, last_activity_at, created_at
		)
		SELECT
			project_path,
			COALESCE(commit_hash, ''),
			COALESCE(branch, ''),
			file_path,
			MAX(language),
			editor_name,
			SUM(duration_ms),
			COUNT(*),
			MIN(timestamp),
			MAX(timestamp),
			?
		FROM activity_logs
		WHERE summarized = 0 AND id <= ?
		GROUP BY project_path, COALESCE(commit_hash, ''), COALESCE(branch, ''), file_path, editor_name
		ORDER BY MIN(timestamp)
	`
	result, err := tx.ExecContext(ctx, insert, toMillis(now), watermark)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate activity: %w", err)
	}
	created, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE activity_logs SET summarized = 1 WHERE summarized = 0 AND id <= ?`, watermark,
	); err != nil {
		return 0, fmt.Errorf("failed to mark activity summarized: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rollup: %w", err)
	}
	return created, nil
}

// PendingFileActivities returns up to limit summaries, oldest first
func (r *SummaryRepository) PendingFileActivities(ctx context.Context, limit int) ([]summary.FileActivity, error) {
	query := `
		SELECT
			id, project_path, commit_hash, branch, file_path, language, editor_name,
			total_duration_ms, activity_count, first_activity_at, last_activity_at
		FROM file_activity_summaries
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list file activity: %w", err)
	}
	defer rows.Close()

	var summaries []summary.FileActivity
	for rows.Next() {
		var s summary.FileActivity
		var totalMS, firstAt, lastAt int64
		if err := rows.Scan(
			&s.ID,
			&s.ProjectPath,
			&s.CommitHash,
			&s.Branch,
			&s.FilePath,
			&s.Language,
			&s.EditorName,
			&totalMS,
			&s.ActivityCount,
			&firstAt,
			&lastAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan file activity: %w", err)
		}
		s.TotalDuration = millis(totalMS)
		s.FirstActivityAt = fromMillis(firstAt)
		s.LastActivityAt = fromMillis(lastAt)
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file activity rows: %w", err)
	}

	return summaries, nil
}

// DeleteFileActivities removes exactly the given summaries
func (r *SummaryRepository) DeleteFileActivities(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `DELETE FROM file_activity_summaries WHERE id IN (` + placeholders(len(ids)) + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete file activity: %w", err)
	}
	return nil
}

type dailyKey struct {
	day     string
	project string
}

// DailySummaries aggregates raw rows by project and calendar day and
// returns the limit most recent days, newest first.
func (r *SummaryRepository) DailySummaries(ctx context.Context, limit int) ([]summary.Daily, error) {
	totals := `
		SELECT day, project_path, SUM(duration_ms)
		FROM activity_logs
		GROUP BY day, project_path
		ORDER BY day DESC, project_path ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, totals, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily activity: %w", err)
	}

	var days []summary.Daily
	index := make(map[dailyKey]int)
	for rows.Next() {
		var d summary.Daily
		var totalMS int64
		if err := rows.Scan(&d.Date, &d.ProjectPath, &totalMS); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan daily activity: %w", err)
		}
		d.TotalDuration = millis(totalMS)
		d.LanguageBreakdown = make(map[string]time.Duration)
		index[dailyKey{d.Date, d.ProjectPath}] = len(days)
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating daily rows: %w", err)
	}
	rows.Close()

	if len(days) == 0 {
		return nil, nil
	}
	oldest := days[len(days)-1].Date

	if err := r.fillLanguages(ctx, oldest, days, index); err != nil {
		return nil, err
	}
	if err := r.fillFiles(ctx, oldest, days, index); err != nil {
		return nil, err
	}
	if err := r.fillCommits(ctx, oldest, days, index); err != nil {
		return nil, err
	}

	return days, nil
}

func (r *SummaryRepository) fillLanguages(ctx context.Context, oldest string, days []summary.Daily, index map[dailyKey]int) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT day, project_path, language, SUM(duration_ms)
		FROM activity_logs
		WHERE day >= ?
		GROUP BY day, project_path, language
	`, oldest)
	if err != nil {
		return fmt.Errorf("failed to aggregate languages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key dailyKey
		var language string
		var totalMS int64
		if err := rows.Scan(&key.day, &key.project, &language, &totalMS); err != nil {
			return fmt.Errorf("failed to scan language breakdown: %w", err)
		}
		if i, ok := index[key]; ok {
			days[i].LanguageBreakdown[language] = millis(totalMS)
		}
	}
	return rows.Err()
}

func (r *SummaryRepository) fillFiles(ctx context.Context, oldest string, days []summary.Daily, index map[dailyKey]int) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT day, project_path, file_path
		FROM activity_logs
		WHERE day >= ?
	`, oldest)
	if err != nil {
		return fmt.Errorf("failed to list edited files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key dailyKey
		var file string
		if err := rows.Scan(&key.day, &key.project, &file); err != nil {
			return fmt.Errorf("failed to scan edited file: %w", err)
		}
		if i, ok := index[key]; ok {
			days[i].Files = append(days[i].Files, file)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range days {
		sort.Strings(days[i].Files)
	}
	return nil
}

func (r *SummaryRepository) fillCommits(ctx context.Context, oldest string, days []summary.Daily, index map[dailyKey]int) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT day, project_path, commit_count
		FROM daily_commit_counts
		WHERE day >= ?
	`, oldest)
	if err != nil {
		return fmt.Errorf("failed to count commits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key dailyKey
		var count int
		if err := rows.Scan(&key.day, &key.project, &count); err != nil {
			return fmt.Errorf("failed to scan commit count: %w", err)
		}
		if i, ok := index[key]; ok {
			days[i].CommitCount = count
		}
	}
	return rows.Err()
}
