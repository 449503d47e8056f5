package repository

import (
	"context"
	"time"

	"github.com/rpggio/codepulse/internal/domain/activity"
	"github.com/rpggio/codepulse/internal/domain/commit"
	"github.com/rpggio/codepulse/internal/domain/summary"
)

// ActivityRepository manages raw activity persistence
type ActivityRepository interface {
	Insert(ctx context.Context, entry *activity.Log) error
	List(ctx context.Context, opts activity.ListOptions) ([]activity.Log, error)
	DeleteBefore(ctx context.Context, day string) (int64, error)
}

// SummaryRepository manages the local aggregates
type SummaryRepository interface {
	Rollup(ctx context.Context, now time.Time) (int64, error)
	PendingFileActivities(ctx context.Context, limit int) ([]summary.FileActivity, error)
	DeleteFileActivities(ctx context.Context, ids []int64) error
	DailySummaries(ctx context.Context, limit int) ([]summary.Daily, error)
}

// CommitRepository manages observed commit persistence
type CommitRepository interface {
	Create(ctx context.Context, c *commit.Commit) error
	ListUnsynced(ctx context.Context, limit int) ([]commit.Commit, error)
	Delete(ctx context.Context, ids []string) error
}
