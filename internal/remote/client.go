// Package remote is the client side of the telemetry service. Every
// operation reports acknowledgement as a Result and never returns an
// error: transport failures and rejected batches both read as not
// acknowledged.
package remote

import (
	"context"
	"log/slog"

	"github.com/rpggio/codepulse/internal/domain/commit"
	"github.com/rpggio/codepulse/internal/domain/summary"
)

// Result is the service's answer to a sync call.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Caller performs one RPC.
type Caller interface {
	Call(ctx context.Context, method string, params, result any) error
}

// Client sends aggregate batches to the telemetry service.
type Client struct {
	rpc    Caller
	logger *slog.Logger
}

// NewClient creates a Client.
func NewClient(rpc Caller, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{rpc: rpc, logger: logger}
}

// SyncFileActivities uploads file-activity aggregates.
func (c *Client) SyncFileActivities(ctx context.Context, activities []summary.FileActivity) Result {
	return c.send(ctx, MethodSyncFileActivities, len(activities), Input[FileActivityItem]{Input: FileActivityItems(activities)})
}

// SyncDailyStats uploads daily aggregates.
func (c *Client) SyncDailyStats(ctx context.Context, days []summary.Daily) Result {
	items, err := DailyStatItems(days)
	if err != nil {
		c.logger.Warn("failed to encode daily stats", "error", err)
		return Result{Message: err.Error()}
	}
	return c.send(ctx, MethodSyncDailyStats, len(days), Input[DailyStatItem]{Input: items})
}

// SyncCommits uploads observed commits.
func (c *Client) SyncCommits(ctx context.Context, commits []commit.Commit) Result {
	return c.send(ctx, MethodSyncCommits, len(commits), Input[CommitItem]{Input: CommitItems(commits)})
}

func (c *Client) send(ctx context.Context, method string, count int, params any) Result {
	var result Result
	if err := c.rpc.Call(ctx, method, params, &result); err != nil {
		c.logger.Warn("sync call failed", "method", method, "count", count, "error", err)
		return Result{Message: err.Error()}
	}
	if !result.Success {
		c.logger.Warn("sync rejected", "method", method, "count", count, "message", result.Message)
		return result
	}
	c.logger.Debug("sync acknowledged", "method", method, "count", count)
	return result
}
