package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Version is the only protocol version spoken on either side.
const Version = "2.0"

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// ErrInvalidRequest is returned by ParseRequest for well-formed JSON
// that is not a usable request.
var ErrInvalidRequest = errors.New("invalid request")

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response as written by a server.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id,omitempty"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewRequest builds a request with params encoded as JSON.
func NewRequest(id any, method string, params any) (Request, error) {
	req := Request{JSONRPC: Version, Method: method, ID: id}
	if params == nil {
		return req, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, fmt.Errorf("encode params: %w", err)
	}
	req.Params = raw
	return req, nil
}

// ParseRequest decodes one request. Params, when present, must be an
// object or an array.
func ParseRequest(body io.Reader) (Request, error) {
	var req Request
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return Request{}, fmt.Errorf("parse error: %w", err)
	}
	if req.JSONRPC != Version || req.Method == "" {
		return Request{}, ErrInvalidRequest
	}
	if len(req.Params) > 0 && req.Params[0] != '{' && req.Params[0] != '[' {
		return Request{}, fmt.Errorf("%w: params must be structured", ErrInvalidRequest)
	}
	return req, nil
}

// DecodeResponse reads one response and unmarshals its result into
// result, which may be nil. An error object is returned as *Error.
func DecodeResponse(body io.Reader, result any) error {
	var resp struct {
		JSONRPC string          `json:"jsonrpc"`
		Result  json.RawMessage `json:"result"`
		Error   *Error          `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// WriteResult writes a success response.
func WriteResult(w http.ResponseWriter, id any, result any) {
	writeResponse(w, Response{JSONRPC: Version, Result: result, ID: id})
}

// WriteError writes an error response. JSON-RPC errors travel with
// HTTP 200.
func WriteError(w http.ResponseWriter, id any, code int, message string, data any) {
	writeResponse(w, Response{
		JSONRPC: Version,
		Error:   &Error{Code: code, Message: message, Data: data},
		ID:      id,
	})
}

func writeResponse(w http.ResponseWriter, payload Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
