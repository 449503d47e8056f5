package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/codepulse/internal/clock"
	"github.com/rpggio/codepulse/internal/config"
	"github.com/rpggio/codepulse/internal/correlator"
	"github.com/rpggio/codepulse/internal/credential"
	"github.com/rpggio/codepulse/internal/domain/activity"
	"github.com/rpggio/codepulse/internal/git"
	"github.com/rpggio/codepulse/internal/mcp"
	"github.com/rpggio/codepulse/internal/remote"
	"github.com/rpggio/codepulse/internal/sqlite"
	"github.com/rpggio/codepulse/internal/status"
	"github.com/rpggio/codepulse/internal/syncengine"
	"github.com/rpggio/codepulse/internal/transport"
	"github.com/rpggio/codepulse/internal/workspace"
	"github.com/spf13/pflag"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	workspaces []string
	dbPath     string
	logLevel   string
	noMCP      bool
	noWatch    bool
	version    bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	flagSet := pflag.NewFlagSet("codepulse", pflag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "path to a YAML config file (default: $CODEPULSE_CONFIG_PATH)")
	flagSet.StringArrayVar(&opts.workspaces, "workspace", nil, "workspace folder to track (repeatable)")
	flagSet.StringVar(&opts.dbPath, "db", "", "path to the SQLite database")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flagSet.BoolVar(&opts.noMCP, "no-mcp", false, "do not serve MCP on stdio; run until interrupted")
	flagSet.BoolVar(&opts.noWatch, "no-watch", false, "do not watch workspace folders for file saves")
	flagSet.BoolVar(&opts.version, "version", false, "print the version and exit")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return opts, nil
}

// apply overrides cfg with the flags that were set.
func (o options) apply(cfg *config.Config) {
	if len(o.workspaces) > 0 {
		cfg.Workspace.Folders = o.workspaces
	}
	if o.dbPath != "" {
		cfg.DB.Path = o.dbPath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.noMCP {
		cfg.MCP.Enabled = false
	}
	if o.noWatch {
		cfg.Workspace.Watch = false
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.version {
		fmt.Println("codepulse", version)
		return nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	opts.apply(&cfg)
	if len(cfg.Workspace.Folders) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		cfg.Workspace.Folders = []string{wd}
	}

	// stdout carries MCP traffic, so logs never go there.
	logWriter := io.Writer(os.Stderr)
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newAgent(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	a.start(ctx)
	defer a.stop()

	if !cfg.MCP.Enabled {
		logger.Info("running without MCP", "folders", a.folders.Paths())
		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	}

	logger.Info("starting stdio transport", "folders", a.folders.Paths())
	if err := mcp.Run(ctx, a.mcpServer()); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio server: %w", err)
	}
	logger.Info("shutting down")
	return nil
}

// agent owns every long-lived component. Construction order is the
// dependency order; close releases them in reverse.
type agent struct {
	cfg    config.Config
	logger *slog.Logger

	db          *sqlite.DB
	tracker     *status.Tracker
	folders     *workspace.Folders
	correlator  *correlator.Correlator
	recorder    *activity.Recorder
	credentials *credential.FileStore
	engine      *syncengine.Engine
	watcher     *workspace.Watcher
}

func newAgent(ctx context.Context, cfg config.Config, logger *slog.Logger) (*agent, error) {
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	a := &agent{cfg: cfg, logger: logger, db: db}
	a.tracker = status.NewTracker(cfg.Status.File, logger.With("component", "status"))
	a.folders = workspace.NewFolders(cfg.Workspace.Folders)

	commits := sqlite.NewCommitRepository(db)
	gitClient := git.CLI{Structured: cfg.Git.DiffStat == config.DiffStatNumstat}
	a.correlator = correlator.New(gitClient, commits, logger.With("component", "correlator"))
	if err := a.correlator.Initialize(ctx, a.folders.Paths()); err != nil {
		a.close()
		return nil, fmt.Errorf("discover repositories: %w", err)
	}

	a.recorder = activity.NewRecorder(activity.Config{
		Debounce:   cfg.Tracking.Debounce,
		Idle:       cfg.Tracking.Idle,
		EditorName: cfg.Tracking.EditorName,
	}, a.correlator, a.folders, a.tracker, clock.Real(), logger.With("component", "recorder"))

	a.credentials = credential.NewFileStore(cfg.Remote.TokenPath)
	rpc := transport.NewClient(cfg.Remote.Endpoint, transport.ClientOptions{
		HTTPClient: &http.Client{Timeout: requestTimeout},
		Tokens:     a.credentials,
		Gzip:       cfg.Remote.Gzip,
	})
	if cfg.Remote.Endpoint == "" {
		logger.Warn("no remote endpoint configured; uploads will fail and data stays local")
	}

	a.engine = syncengine.New(
		syncengine.Config{Interval: cfg.Sync.Interval},
		a.recorder,
		syncengine.Store{
			Activities: sqlite.NewActivityRepository(db),
			Summaries:  sqlite.NewSummaryRepository(db),
			Commits:    commits,
		},
		remote.NewClient(rpc, logger.With("component", "remote")),
		a.tracker,
		clock.Real(),
		logger.With("component", "sync"),
	)

	if cfg.Workspace.Watch {
		a.watcher, err = workspace.NewWatcher(a.folders, a.recorder, logger.With("component", "workspace"))
		if err != nil {
			// Tracking still works through MCP.
			logger.Warn("workspace watch unavailable", "error", err)
			a.watcher = nil
		}
	}

	return a, nil
}

func (a *agent) start(ctx context.Context) {
	a.engine.Start(ctx)
	if a.watcher != nil {
		a.watcher.Start()
	}
}

// stop halts event sources and the sync loop, then writes whatever is
// still queued to the local store.
func (a *agent) stop() {
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("failed to stop workspace watcher", "error", err)
		}
	}
	a.engine.Stop()
	a.engine.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if n, err := a.engine.Flush(ctx); err != nil {
		a.logger.Error("failed to flush pending activity", "error", err)
	} else if n > 0 {
		a.logger.Info("flushed pending activity", "rows", n)
	}
}

func (a *agent) close() {
	if a.correlator != nil {
		if err := a.correlator.Close(); err != nil {
			a.logger.Warn("failed to close repository watch", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
}

func (a *agent) mcpServer() *sdkmcp.Server {
	return mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Recorder:     a.recorder,
			Status:       a.tracker,
			Repositories: a.correlator,
			Credentials:  a.credentials,
			Engine:       a.engine,
		},
		Version: version,
		Logger:  a.logger.With("component", "mcp"),
	})
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
