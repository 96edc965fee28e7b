package tool

import (
	"context"
	"errors"
	"time"
)

// ErrToolExecutionFailed marks a single tool invocation that did not succeed.
var ErrToolExecutionFailed = errors.New("tool execution failed")

// CallContext identifies the request on whose behalf a tool runs.
type CallContext struct {
	UserID    string            `json:"user_id"`
	SessionID string            `json:"session_id"`
	RequestID string            `json:"request_id"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata"`
}

// Result is what a tool backend reports back.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Invoker executes a named tool. Implementations must be safe for
// concurrent use.
type Invoker interface {
	Invoke(ctx context.Context, toolID string, params map[string]any, cc CallContext) (Result, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, toolID string, params map[string]any, cc CallContext) (Result, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, toolID string, params map[string]any, cc CallContext) (Result, error) {
	return f(ctx, toolID, params, cc)
}
