package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

type testHandler struct {
	method  string
	account string
	params  json.RawMessage
}

func (h *testHandler) Handle(_ context.Context, accountID, method string, params json.RawMessage) (any, error) {
	if method == "missing" {
		return nil, ErrMethodUnknown
	}
	h.method = method
	h.account = accountID
	h.params = params
	return map[string]any{"success": true, "message": "ok"}, nil
}

type staticResolver struct {
	account string
}

func (r *staticResolver) ResolveAccount(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	return r.account, nil
}

func postRPC(t *testing.T, url string, body []byte, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHTTPServer_RPC(t *testing.T) {
	handler := &testHandler{}
	resolver := &staticResolver{account: "acct-1"}
	server := httptest.NewServer(NewServer(handler, AuthMiddleware(resolver)))
	t.Cleanup(server.Close)

	resp := postRPC(t, server.URL, []byte(`{"jsonrpc":"2.0","method":"syncCommits","params":[],"id":"1"}`),
		map[string]string{"Authorization": "Bearer token"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "syncCommits", handler.method)
	require.Equal(t, "acct-1", handler.account)

	var decoded Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Nil(t, decoded.Error)
	require.Equal(t, "1", decoded.ID)
}

func TestHTTPServer_RejectsUnauthenticated(t *testing.T) {
	handler := &testHandler{}
	server := httptest.NewServer(NewServer(handler, AuthMiddleware(&staticResolver{account: "acct-1"})))
	t.Cleanup(server.Close)

	resp := postRPC(t, server.URL, []byte(`{"jsonrpc":"2.0","method":"syncCommits","id":1}`), nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, handler.method)
}

func TestHTTPServer_UnknownMethod(t *testing.T) {
	server := httptest.NewServer(NewServer(&testHandler{}, nil))
	t.Cleanup(server.Close)

	resp := postRPC(t, server.URL, []byte(`{"jsonrpc":"2.0","method":"missing","id":1}`), nil)

	var decoded Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.NotNil(t, decoded.Error)
	require.Equal(t, CodeMethodNotFound, decoded.Error.Code)
}

func TestHTTPServer_GzipBody(t *testing.T) {
	handler := &testHandler{}
	server := httptest.NewServer(NewServer(handler, nil))
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(`{"jsonrpc":"2.0","method":"syncDailyStats","params":{"a":1},"id":1}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	resp := postRPC(t, server.URL, buf.Bytes(), map[string]string{"Content-Encoding": "gzip"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "syncDailyStats", handler.method)
	require.JSONEq(t, `{"a":1}`, string(handler.params))
}

func TestHTTPServer_Health(t *testing.T) {
	handler := &testHandler{}
	server := httptest.NewServer(NewServer(handler, nil))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
