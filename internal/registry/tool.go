package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrSnakeDoc/arrgate/internal/apierr"
)

// Tool is a capability bound to a user.
type Tool struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Service          string `json:"service"`
	RequiresApproval bool   `json:"requiresApproval"`

	displayName string
	operation   string
	handler     Handler
}

func newTool(def ServiceDefinition, capability Capability, h Handler) *Tool {
	return &Tool{
		Name:             capability.Name,
		Description:      capability.Description,
		Category:         capability.Category,
		Service:          def.Name,
		RequiresApproval: capability.RequiresApproval,
		displayName:      def.DisplayName,
		operation:        capability.Operation,
		handler:          h,
	}
}

// ToolResult is what every invocation yields: data on success, a user-safe
// message otherwise.
type ToolResult struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the invocation succeeded.
func (r ToolResult) OK() bool { return r.Error == "" }

// Invoke runs the tool. Errors never escape raw; they are formatted for the
// end user.
func (t *Tool) Invoke(ctx context.Context, args json.RawMessage) ToolResult {
	data, err := t.handler(ctx, args)
	if err != nil {
		return ToolResult{Error: apierr.FormatToolError(err, t.displayName, t.operation).Error}
	}
	return ToolResult{Data: data}
}

// decodeArgs unmarshals args into T. Empty args decode to the zero value.
func decodeArgs[T any](args json.RawMessage) (T, error) {
	var v T
	if len(args) == 0 || string(args) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return v, fmt.Errorf("invalid arguments: %w", err)
	}
	return v, nil
}

// handle adapts a typed function into a Handler.
func handle[A, R any](fn func(ctx context.Context, args A) (R, error)) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		args, err := decodeArgs[A](raw)
		if err != nil {
			return nil, err
		}
		return fn(ctx, args)
	}
}

// argError reports a missing or invalid argument.
func argError(format string, args ...any) error {
	return fmt.Errorf("invalid arguments: "+format, args...)
}
