package tools

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// Handler executes one tool call for a user with already-decoded arguments.
// It returns the tool's result record, or a *ToolError for assistant-visible
// failures, or any other error for storage failures that must abort the turn.
type Handler func(ctx context.Context, userID string, args map[string]any) (any, error)

// Tool is one entry of the closed registry: a name, the JSON schema
// advertised to the model, whether the tool mutates task data, and the
// handler that executes it.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Mutating    bool
	Handler     Handler
}

// Registry is the closed, immutable set of task tools. It is built once at
// startup; there is no dynamic registration at request time.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds the registry with all six task tools. A duplicate tool
// name is a programming error and panics at startup.
func NewRegistry(deps *Dependencies) *Registry {
	r := &Registry{tools: make(map[string]Tool)}

	r.register(newAddTask(deps))
	r.register(newListTasks(deps))
	r.register(newGetTask(deps))
	r.register(newUpdateTask(deps))
	r.register(newCompleteTask(deps))
	r.register(newDeleteTask(deps))

	return r
}

func (r *Registry) register(t Tool) {
	if _, exists := r.tools[t.Name]; exists {
		panic(fmt.Sprintf("tools: duplicate tool name %q", t.Name))
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// LLMTools returns the registry as langchaingo tool definitions for
// advertising to the reasoning boundary.
func (r *Registry) LLMTools() []llms.Tool {
	out := make([]llms.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}
