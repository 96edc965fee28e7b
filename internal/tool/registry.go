package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler runs a tool and returns its data payload.
type Handler func(ctx context.Context, params map[string]any, cc CallContext) (any, error)

// Definition describes a registered tool.
type Definition struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Registry holds available tools and their handlers. It is an Invoker.
type Registry struct {
	defs     map[string]Definition
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:     make(map[string]Definition),
		handlers: make(map[string]Handler),
	}
}

// Register adds a tool definition and its handler, replacing any previous one.
func (r *Registry) Register(def Definition, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.ID] = def
	r.handlers[def.ID] = handler
}

// Definitions returns all tool definitions sorted by id.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Invoke runs a tool by id. Handler errors are reported as an unsuccessful
// Result together with an error wrapping ErrToolExecutionFailed.
func (r *Registry) Invoke(ctx context.Context, toolID string, params map[string]any, cc CallContext) (Result, error) {
	r.mu.RLock()
	h, ok := r.handlers[toolID]
	r.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("%w: unknown tool: %s", ErrToolExecutionFailed, toolID)
		return Result{Error: err.Error()}, err
	}

	data, err := h(ctx, params, cc)
	if err != nil {
		wrapped := fmt.Errorf("%w: %s: %v", ErrToolExecutionFailed, toolID, err)
		return Result{Error: err.Error()}, wrapped
	}
	return Result{Success: true, Data: data}, nil
}
