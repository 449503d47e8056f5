package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

const bearerScheme = "Bearer"

// TokenSource supplies the bearer token attached to each call. An empty
// token sends the request unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns itself.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

func setBearer(r *http.Request, token string) {
	if token != "" {
		r.Header.Set("Authorization", bearerScheme+" "+token)
	}
}

// bearerToken extracts the token of an Authorization header. The scheme
// is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type accountKey struct{}

// AccountResolver resolves an account ID from a bearer token.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, token string) (string, error)
}

// AccountFromContext returns the account ID set by AuthMiddleware.
func AccountFromContext(ctx context.Context) (string, bool) {
	accountID, ok := ctx.Value(accountKey{}).(string)
	return accountID, ok
}

// AuthMiddleware rejects requests without a bearer token that resolver
// maps to an account.
func AuthMiddleware(resolver AccountResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}

			accountID, err := resolver.ResolveAccount(r.Context(), token)
			if err != nil || accountID == "" {
				unauthorized(w, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, accountID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", bearerScheme)
	http.Error(w, message, http.StatusUnauthorized)
}
