package mcp

import (
	"context"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/codepulse/internal/correlator"
	"github.com/rpggio/codepulse/internal/domain/activity"
	"github.com/rpggio/codepulse/internal/workspace"
)

func registerTools(server *sdkmcp.Server, svc Services) {
	t := &tools{svc: svc}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "record_activity",
		Description: "Record that the user edited, selected or saved a file",
	}, t.recordActivity)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_status",
		Description: "Get the tracking status, pending event count and the last sync report",
	}, t.getStatus)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_repositories",
		Description: "List tracked git repositories with their current commit and branch",
	}, t.listRepositories)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "configure_token",
		Description: "Store the bearer token used to upload activity",
	}, t.configureToken)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "sync_now",
		Description: "Run a sync cycle as soon as the current one finishes",
	}, t.syncNow)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "pause_tracking",
		Description: "Stop recording activity until resume_tracking is called",
	}, t.pause)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "resume_tracking",
		Description: "Resume recording activity",
	}, t.resume)
}

type tools struct {
	svc Services
}

func (t *tools) recordActivity(_ context.Context, _ *sdkmcp.CallToolRequest, in RecordActivityParams) (*sdkmcp.CallToolResult, RecordActivityResult, error) {
	path := strings.TrimSpace(in.FilePath)
	if path == "" {
		return nil, RecordActivityResult{}, errMissingFile
	}
	language := in.Language
	if language == "" {
		language = workspace.LanguageForPath(path)
	}
	kind := activity.Kind(in.Kind)
	if kind == "" {
		kind = activity.KindChange
	}

	rec := t.svc.Recorder
	rec.OnInteraction(activity.Event{FilePath: path, Language: language, Kind: kind})
	return nil, RecordActivityResult{
		Pending:      rec.Pending(),
		LastActivity: formatTime(rec.LastActivity()),
		Paused:       rec.Paused(),
	}, nil
}

func (t *tools) getStatus(_ context.Context, _ *sdkmcp.CallToolRequest, _ GetStatusParams) (*sdkmcp.CallToolResult, GetStatusResult, error) {
	return nil, GetStatusResult{
		Status:       string(t.svc.Status.Current()),
		Paused:       t.svc.Recorder.Paused(),
		Pending:      t.svc.Recorder.Pending(),
		LastActivity: formatTime(t.svc.Recorder.LastActivity()),
		SyncState:    string(t.svc.Engine.State()),
		LastSync:     toSyncReport(t.svc.Engine.LastReport()),
	}, nil
}

func (t *tools) listRepositories(_ context.Context, _ *sdkmcp.CallToolRequest, _ ListRepositoriesParams) (*sdkmcp.CallToolResult, ListRepositoriesResult, error) {
	roots := t.svc.Repositories.Roots()
	if roots == nil {
		roots = []correlator.RootState{}
	}
	return nil, ListRepositoriesResult{Repositories: roots}, nil
}

func (t *tools) configureToken(ctx context.Context, _ *sdkmcp.CallToolRequest, in ConfigureTokenParams) (*sdkmcp.CallToolResult, ConfigureTokenResult, error) {
	if err := t.svc.Credentials.SetToken(ctx, in.Token); err != nil {
		return nil, ConfigureTokenResult{}, MapError(err)
	}
	// Retry uploads with the new token.
	t.svc.Engine.SyncNow()
	return nil, ConfigureTokenResult{Configured: strings.TrimSpace(in.Token) != ""}, nil
}

func (t *tools) syncNow(_ context.Context, _ *sdkmcp.CallToolRequest, _ SyncNowParams) (*sdkmcp.CallToolResult, SyncNowResult, error) {
	t.svc.Engine.SyncNow()
	return nil, SyncNowResult{Scheduled: true, State: string(t.svc.Engine.State())}, nil
}

func (t *tools) pause(_ context.Context, _ *sdkmcp.CallToolRequest, _ PauseParams) (*sdkmcp.CallToolResult, PauseResult, error) {
	t.svc.Recorder.Pause()
	return nil, PauseResult{Status: string(t.svc.Status.Current()), Paused: true}, nil
}

func (t *tools) resume(_ context.Context, _ *sdkmcp.CallToolRequest, _ PauseParams) (*sdkmcp.CallToolResult, PauseResult, error) {
	t.svc.Recorder.Resume()
	return nil, PauseResult{Status: string(t.svc.Status.Current()), Paused: false}, nil
}
