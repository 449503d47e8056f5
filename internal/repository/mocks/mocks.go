package mocks

import (
	"context"
	"time"

	"github.com/rpggio/codepulse/internal/domain/activity"
	"github.com/rpggio/codepulse/internal/domain/commit"
	"github.com/rpggio/codepulse/internal/domain/summary"
	"github.com/stretchr/testify/mock"
)

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Insert(ctx context.Context, entry *activity.Log) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Log, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.Log); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) DeleteBefore(ctx context.Context, day string) (int64, error) {
	args := m.Called(ctx, day)
	return args.Get(0).(int64), args.Error(1)
}

// SummaryRepository is a mock for repository.SummaryRepository.
type SummaryRepository struct {
	mock.Mock
}

func (m *SummaryRepository) Rollup(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SummaryRepository) PendingFileActivities(ctx context.Context, limit int) ([]summary.FileActivity, error) {
	args := m.Called(ctx, limit)
	if list, ok := args.Get(0).([]summary.FileActivity); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SummaryRepository) DeleteFileActivities(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *SummaryRepository) DailySummaries(ctx context.Context, limit int) ([]summary.Daily, error) {
	args := m.Called(ctx, limit)
	if list, ok := args.Get(0).([]summary.Daily); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// CommitRepository is a mock for repository.CommitRepository.
type CommitRepository struct {
	mock.Mock
}

func (m *CommitRepository) Create(ctx context.Context, c *commit.Commit) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CommitRepository) ListUnsynced(ctx context.Context, limit int) ([]commit.Commit, error) {
	args := m.Called(ctx, limit)
	if list, ok := args.Get(0).([]commit.Commit); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CommitRepository) Delete(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}
