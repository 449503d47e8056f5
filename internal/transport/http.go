package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/klauspost/compress/gzip"
)

// Handler dispatches JSON-RPC methods.
type Handler interface {
	Handle(ctx context.Context, accountID, method string, params json.RawMessage) (any, error)
}

// ErrMethodUnknown is returned by a Handler for methods it does not serve.
var ErrMethodUnknown = errors.New("method not found")

// Server wires HTTP handlers.
type Server struct {
	handler Handler
}

// NewServer creates an HTTP handler serving JSON-RPC on POST /rpc and a
// health check on GET /health. authMiddleware, when set, guards /rpc.
func NewServer(handler Handler, authMiddleware func(http.Handler) http.Handler) *http.ServeMux {
	srv := &Server{handler: handler}

	var rpc http.Handler = DecompressMiddleware(http.HandlerFunc(srv.handleRPC))
	if authMiddleware != nil {
		rpc = authMiddleware(rpc)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /rpc", rpc)
	mux.HandleFunc("GET /health", srv.handleHealth)
	return mux
}

// DecompressMiddleware transparently inflates gzip request bodies.
func DecompressMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") != "gzip" {
			next.ServeHTTP(w, r)
			return
		}
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			WriteError(w, nil, CodeParseError, "invalid gzip body", nil)
			return
		}
		defer zr.Close()
		r.Body = zr
		r.Header.Del("Content-Encoding")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		code := CodeParseError
		if errors.Is(err, ErrInvalidRequest) {
			code = CodeInvalidRequest
		}
		WriteError(w, nil, code, err.Error(), nil)
		return
	}

	accountID, _ := AccountFromContext(r.Context())

	result, err := s.handler.Handle(r.Context(), accountID, req.Method, req.Params)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthorized):
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		case errors.Is(err, ErrMethodUnknown):
			WriteError(w, req.ID, CodeMethodNotFound, err.Error(), nil)
		default:
			WriteError(w, req.ID, CodeInternalError, err.Error(), nil)
		}
		return
	}

	WriteResult(w, req.ID, result)
}
