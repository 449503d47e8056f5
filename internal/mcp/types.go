package mcp

import (
	"time"

	"github.com/rpggio/codepulse/internal/correlator"
	"github.com/rpggio/codepulse/internal/syncengine"
)

// Times are RFC 3339 strings in tool results.

type RecordActivityParams struct {
	FilePath string `json:"file_path" jsonschema:"absolute path of the file the user interacted with"`
	Language string `json:"language,omitempty" jsonschema:"language id; inferred from the file name when omitted"`
	Kind     string `json:"kind,omitempty" jsonschema:"change, selection or save; defaults to change"`
}

type RecordActivityResult struct {
	Pending      int    `json:"pending"`
	LastActivity string `json:"last_activity,omitempty"`
	Paused       bool   `json:"paused"`
}

type GetStatusParams struct{}

type SyncReport struct {
	StartedAt      string   `json:"started_at"`
	Flushed        int      `json:"flushed"`
	FlushFailures  int      `json:"flush_failures"`
	DailySent      int      `json:"daily_sent"`
	FilesSent      int      `json:"files_sent"`
	CommitsSent    int      `json:"commits_sent"`
	RowsPruned     int64    `json:"rows_pruned"`
	Unacknowledged []string `json:"unacknowledged,omitempty"`
	Error          string   `json:"error,omitempty"`
}

type GetStatusResult struct {
	Status       string      `json:"status"`
	Paused       bool        `json:"paused"`
	Pending      int         `json:"pending"`
	LastActivity string      `json:"last_activity,omitempty"`
	SyncState    string      `json:"sync_state"`
	LastSync     *SyncReport `json:"last_sync,omitempty"`
}

type ListRepositoriesParams struct{}

type ListRepositoriesResult struct {
	Repositories []correlator.RootState `json:"repositories"`
}

type ConfigureTokenParams struct {
	Token string `json:"token" jsonschema:"bearer token for the telemetry service; empty removes the stored token"`
}

type ConfigureTokenResult struct {
	Configured bool `json:"configured"`
}

type SyncNowParams struct{}

type SyncNowResult struct {
	Scheduled bool   `json:"scheduled"`
	State     string `json:"state"`
}

type PauseParams struct{}

type PauseResult struct {
	Status string `json:"status"`
	Paused bool   `json:"paused"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toSyncReport(r syncengine.Report) *SyncReport {
	if r.StartedAt.IsZero() {
		return nil
	}
	return &SyncReport{
		StartedAt:      formatTime(r.StartedAt),
		Flushed:        r.Flushed,
		FlushFailures:  r.FlushFailures,
		DailySent:      r.DailySent,
		FilesSent:      r.FilesSent,
		CommitsSent:    r.CommitsSent,
		RowsPruned:     r.RowsPruned,
		Unacknowledged: r.Unacknowledged,
		Error:          r.Error,
	}
}
