// Package credential stores the bearer token sent to the telemetry
// service.
package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// EnvToken overrides the stored token when set.
const EnvToken = "CODEPULSE_TOKEN"

// ErrEnvOverride is returned by SetToken while the environment supplies
// the token.
var ErrEnvOverride = errors.New("token is set by " + EnvToken)

// FileStore keeps the token in a single owner-only file.
type FileStore struct {
	path string

	mu sync.Mutex
}

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Token returns the configured token, or "" if none is configured.
func (s *FileStore) Token(_ context.Context) (string, error) {
	if token := strings.TrimSpace(os.Getenv(EnvToken)); token != "" {
		return token, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SetToken replaces the stored token. An empty token removes it.
func (s *FileStore) SetToken(_ context.Context, token string) error {
	if os.Getenv(EnvToken) != "" {
		return ErrEnvOverride
	}
	token = strings.TrimSpace(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove token: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
