// Package testserver runs an in-process telemetry service for tests.
package testserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rpggio/codepulse/internal/remote"
	"github.com/rpggio/codepulse/internal/transport"
)

// TestServer accepts sync batches over JSON-RPC and keeps them in memory.
type TestServer struct {
	Server    *httptest.Server
	Token     string
	AccountID string

	mu       sync.Mutex
	apiKeys  map[string]string // token hash -> account
	reject   map[string]string // method -> rejection message
	fail     map[string]bool   // method -> internal error
	calls    map[string]int
	files    []remote.FileActivityItem
	daily    []remote.DailyStatItem
	commits  []remote.CommitItem
	accounts []string
}

// New starts a server accepting token for accountID.
func New(t *testing.T, token, accountID string) *TestServer {
	t.Helper()

	ts := &TestServer{
		Token:     token,
		AccountID: accountID,
		apiKeys:   make(map[string]string),
		reject:    make(map[string]string),
		fail:      make(map[string]bool),
		calls:     make(map[string]int),
	}
	ts.AddAPIKey(token, accountID)

	ts.Server = httptest.NewServer(transport.NewServer(ts, transport.AuthMiddleware(ts)))
	t.Cleanup(ts.Server.Close)

	return ts
}

// Endpoint is the JSON-RPC URL.
func (ts *TestServer) Endpoint() string {
	return ts.Server.URL + "/rpc"
}

// AddAPIKey registers another accepted token.
func (ts *TestServer) AddAPIKey(token, accountID string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.apiKeys[hashToken(token)] = accountID
}

// Reject makes method answer success=false with message until Accept.
func (ts *TestServer) Reject(method, message string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.reject[method] = message
}

// Fail makes method answer with a JSON-RPC internal error until Accept.
func (ts *TestServer) Fail(method string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.fail[method] = true
}

// Accept restores normal handling of method.
func (ts *TestServer) Accept(method string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.reject, method)
	delete(ts.fail, method)
}

// Calls returns how many times method was invoked.
func (ts *TestServer) Calls(method string) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.calls[method]
}

// FileActivities returns every acknowledged file-activity item.
func (ts *TestServer) FileActivities() []remote.FileActivityItem {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]remote.FileActivityItem(nil), ts.files...)
}

// DailyStats returns every acknowledged daily item.
func (ts *TestServer) DailyStats() []remote.DailyStatItem {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]remote.DailyStatItem(nil), ts.daily...)
}

// Commits returns every acknowledged commit item.
func (ts *TestServer) Commits() []remote.CommitItem {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]remote.CommitItem(nil), ts.commits...)
}

// Accounts returns the account of every acknowledged call, in order.
func (ts *TestServer) Accounts() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]string(nil), ts.accounts...)
}

// ResolveAccount implements transport.AccountResolver.
func (ts *TestServer) ResolveAccount(_ context.Context, token string) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	accountID, ok := ts.apiKeys[hashToken(token)]
	if !ok {
		return "", transport.ErrUnauthorized
	}
	return accountID, nil
}

// Handle implements transport.Handler.
func (ts *TestServer) Handle(_ context.Context, accountID, method string, params json.RawMessage) (any, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.calls[method]++
	if ts.fail[method] {
		return nil, fmt.Errorf("%s unavailable", method)
	}
	if message, ok := ts.reject[method]; ok {
		return remote.Result{Success: false, Message: message}, nil
	}

	var count int
	switch method {
	case remote.MethodSyncFileActivities:
		var in remote.Input[remote.FileActivityItem]
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, err
		}
		ts.files = append(ts.files, in.Input...)
		count = len(in.Input)
	case remote.MethodSyncDailyStats:
		var in remote.Input[remote.DailyStatItem]
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, err
		}
		ts.daily = append(ts.daily, in.Input...)
		count = len(in.Input)
	case remote.MethodSyncCommits:
		var in remote.Input[remote.CommitItem]
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, err
		}
		ts.commits = append(ts.commits, in.Input...)
		count = len(in.Input)
	default:
		return nil, transport.ErrMethodUnknown
	}

	ts.accounts = append(ts.accounts, accountID)
	return remote.Result{Success: true, Message: fmt.Sprintf("stored %d", count)}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
