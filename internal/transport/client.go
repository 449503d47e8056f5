package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps 401 and 403 to ErrUnauthorized.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// ClientOptions configures a Client.
type ClientOptions struct {
	HTTPClient *http.Client
	Tokens     TokenSource
	// Gzip compresses request bodies.
	Gzip bool
}

// Client issues JSON-RPC 2.0 calls over HTTP POST.
type Client struct {
	endpoint   string
	httpClient *http.Client
	tokens     TokenSource
	gzip       bool
}

// NewClient creates a Client for endpoint.
func NewClient(endpoint string, opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
		tokens:     opts.Tokens,
		gzip:       opts.Gzip,
	}
}

// Call invokes method with params and decodes the result into result,
// which may be nil. An error response from the server is returned as
// *Error.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	rpcReq, err := NewRequest(uuid.NewString(), method, params)
	if err != nil {
		return err
	}
	body, err := json.Marshal(rpcReq)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if c.gzip {
		if body, err = compress(body); err != nil {
			return err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.gzip {
		httpReq.Header.Set("Content-Encoding", "gzip")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		setBearer(httpReq, token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: %w", method, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))})
	}

	if err := DecodeResponse(resp.Body, result); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("compress request: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress request: %w", err)
	}
	return buf.Bytes(), nil
}
