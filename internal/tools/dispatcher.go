package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"taskbot/internal/db"
	"taskbot/internal/models"
)

// Dispatcher resolves a model-requested tool call against the registry,
// executes it, and returns the transient ToolCall record. The dispatcher
// itself is side-effect-free and never retries; side effects are the task
// store's.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over an already-built registry.
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// Registry returns the underlying registry, e.g. for advertising tool
// schemas to the model.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch executes one tool call for userID. Assistant-visible failures
// (unknown tool, bad arguments, missing/foreign task) are embedded in the
// returned ToolCall's result, not returned as errors. The returned error is
// non-nil only for storage failures, which abort the whole turn. mutated
// reports whether the call successfully changed task data.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, name string, args map[string]any) (call models.ToolCall, mutated bool, err error) {
	call = models.ToolCall{Tool: name, Args: args}

	tool, ok := d.registry.Get(name)
	if !ok {
		d.logger.Warn("unknown tool requested", "tool", name, "user_id", userID)
		call.Result = &ToolError{Kind: KindUnknownTool, Message: fmt.Sprintf("I don't have a tool called %q", name)}
		return call, false, nil
	}

	result, err := tool.Handler(ctx, userID, args)
	if err != nil {
		var toolErr *ToolError
		switch {
		case errors.As(err, &toolErr):
			call.Result = toolErr
			return call, false, nil
		case errors.Is(err, db.ErrNotFound):
			// Disguised ownership failure or genuinely missing task;
			// both produce the same opaque result
			call.Result = taskNotFound()
			return call, false, nil
		default:
			d.logger.Error("tool storage failure", "tool", name, "user_id", userID, "error", err)
			return call, false, fmt.Errorf("dispatch %s: %w", name, err)
		}
	}

	call.Result = result
	return call, tool.Mutating, nil
}
