package mcp

import (
	"context"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/codepulse/internal/correlator"
	"github.com/rpggio/codepulse/internal/domain/activity"
	"github.com/rpggio/codepulse/internal/status"
	"github.com/rpggio/codepulse/internal/syncengine"
)

// Recorder defines the activity operations needed by MCP.
type Recorder interface {
	OnInteraction(event activity.Event)
	Pause()
	Resume()
	Paused() bool
	Pending() int
	LastActivity() time.Time
}

// StatusSource reports the current agent status.
type StatusSource interface {
	Current() status.Status
}

// RepositoryIndex lists the tracked git roots.
type RepositoryIndex interface {
	Roots() []correlator.RootState
}

// CredentialStore replaces the bearer token.
type CredentialStore interface {
	SetToken(ctx context.Context, token string) error
}

// SyncEngine defines the sync operations needed by MCP.
type SyncEngine interface {
	SyncNow()
	State() syncengine.State
	LastReport() syncengine.Report
}

// Services contains everything the tools call into.
type Services struct {
	Recorder     Recorder
	Status       StatusSource
	Repositories RepositoryIndex
	Credentials  CredentialStore
	Engine       SyncEngine
}

// Config contains server configuration.
type Config struct {
	Services Services
	Version  string
	Logger   *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "codepulse",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}

// Run serves MCP over stdin/stdout until ctx is done or the client
// disconnects.
func Run(ctx context.Context, server *sdkmcp.Server) error {
	return server.Run(ctx, &sdkmcp.StdioTransport{})
}
