package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/codepulse/internal/credential"
)

// APIError is the error text returned to MCP clients.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

var errMissingFile = &APIError{Code: "INVALID_INPUT", Message: "file_path is required", RecoveryHint: "Pass an absolute file path"}

// MapError maps domain errors to MCP errors. Unknown errors pass through.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, credential.ErrEnvOverride):
		return &APIError{Code: "TOKEN_FROM_ENV", Message: err.Error(), RecoveryHint: "Unset " + credential.EnvToken + " to store a token"}
	default:
		return err
	}
}
