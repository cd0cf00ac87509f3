package apierr

import (
	"errors"
	"fmt"
)

// ToolError is the stable, user-safe shape every failed capability returns.
type ToolError struct {
	Error string `json:"error"`
}

// FormatToolError maps any failure into a ToolError. It is the only place
// internal error detail becomes user-facing text.
func FormatToolError(err error, serviceName, operation string) ToolError {
	if err == nil {
		return ToolError{}
	}

	var ce *ConfigError
	if errors.As(err, &ce) {
		return ToolError{Error: ce.Message}
	}

	var se *ServiceClientError
	if errors.As(err, &se) {
		switch {
		case se.IsAuthError():
			if errors.Is(se, ErrLoginLockedOut) {
				return ToolError{Error: fmt.Sprintf("%s authentication failed: %s", serviceName, se.Message)}
			}
			return ToolError{Error: fmt.Sprintf("%s authentication failed. Please check your API key in settings.", serviceName)}
		case se.IsNotFound():
			return ToolError{Error: fmt.Sprintf("%s endpoint not found. Please verify your %s URL in settings.", serviceName, serviceName)}
		case se.IsBadRequest():
			return ToolError{Error: fmt.Sprintf("%s validation error: %s", serviceName, se.Message)}
		case se.StatusCode == 0:
			return ToolError{Error: se.Message}
		}
	}

	return ToolError{Error: fmt.Sprintf("%s: Failed to %s: %s", serviceName, operation, err.Error())}
}
