package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Diff-stat modes for GitConfig.DiffStat.
const (
	DiffStatNumstat   = "numstat"
	DiffStatShortstat = "shortstat"
)

// Config defines agent configuration.
type Config struct {
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Remote    RemoteConfig    `yaml:"remote"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Sync      SyncConfig      `yaml:"sync"`
	Git       GitConfig       `yaml:"git"`
	Status    StatusConfig    `yaml:"status"`
	MCP       MCPConfig       `yaml:"mcp"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type RemoteConfig struct {
	Endpoint  string `yaml:"endpoint"`
	TokenPath string `yaml:"token_path"`
	Gzip      bool   `yaml:"gzip"`
}

type WorkspaceConfig struct {
	Folders []string `yaml:"folders"`
	Watch   bool     `yaml:"watch"`
}

type TrackingConfig struct {
	Debounce   time.Duration `yaml:"debounce"`
	Idle       time.Duration `yaml:"idle"`
	EditorName string        `yaml:"editor_name"`
}

type SyncConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type GitConfig struct {
	// DiffStat selects how commit sizes are measured: "numstat" (exact)
	// or "shortstat" (summary line only).
	DiffStat string `yaml:"diffstat"`
}

type StatusConfig struct {
	File string `yaml:"file"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from an optional YAML file and environment
// variables. An empty path falls back to CODEPULSE_CONFIG_PATH.
func Load(path string) (Config, error) {
	dataDir := defaultDataDir()
	cfg := Config{
		DB: DBConfig{
			Path: filepath.Join(dataDir, "codepulse.db"),
		},
		Log: LogConfig{
			Level: "info",
		},
		Remote: RemoteConfig{
			TokenPath: filepath.Join(dataDir, "token"),
		},
		Workspace: WorkspaceConfig{
			Watch: true,
		},
		Tracking: TrackingConfig{
			Debounce:   2 * time.Second,
			Idle:       5 * time.Minute,
			EditorName: "codepulse",
		},
		Sync: SyncConfig{
			Interval: 60 * time.Second,
		},
		Git: GitConfig{
			DiffStat: DiffStatNumstat,
		},
		MCP: MCPConfig{
			Enabled: true,
		},
	}

	if path == "" {
		path = os.Getenv("CODEPULSE_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if dbPath := os.Getenv("CODEPULSE_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("CODEPULSE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("CODEPULSE_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if endpoint := os.Getenv("CODEPULSE_REMOTE_ENDPOINT"); endpoint != "" {
		cfg.Remote.Endpoint = endpoint
	}
	if folders := os.Getenv("CODEPULSE_WORKSPACE"); folders != "" {
		cfg.Workspace.Folders = filepath.SplitList(folders)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the agent cannot run with.
func (c Config) Validate() error {
	if c.Tracking.Debounce <= 0 {
		return fmt.Errorf("tracking.debounce must be positive")
	}
	if c.Tracking.Idle <= c.Tracking.Debounce {
		return fmt.Errorf("tracking.idle must exceed tracking.debounce")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	switch c.Git.DiffStat {
	case DiffStatNumstat, DiffStatShortstat:
	default:
		return fmt.Errorf("git.diffstat must be %q or %q, got %q", DiffStatNumstat, DiffStatShortstat, c.Git.DiffStat)
	}
	if c.Remote.Endpoint != "" && !strings.HasPrefix(c.Remote.Endpoint, "http://") && !strings.HasPrefix(c.Remote.Endpoint, "https://") {
		return fmt.Errorf("remote.endpoint must be an http(s) URL")
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codepulse"
	}
	return filepath.Join(home, ".codepulse")
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
