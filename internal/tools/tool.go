package tools

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/tutor/internal/provider"
	"github.com/mohammad-safakhou/tutor/models"
)

// ErrToolMissing indicates a dispatch to a name that was never registered.
var ErrToolMissing = fmt.Errorf("tool not registered")

// Result is one tool execution outcome: citation-ready text for the model
// plus the sources backing it. Execution failures with a meaningful textual
// representation are carried in Text, never raised past this boundary.
type Result struct {
	Text    string
	Sources []models.Source
}

// Tool is a model-invocable capability. Definition is the only coupling to
// the model's function-calling contract; Execute runs the store operation.
type Tool interface {
	Definition() provider.ToolDefinition
	Execute(ctx context.Context, args map[string]interface{}) Result
}

// Registry holds tools keyed by name, validated at registration. It is
// stateless across executions so concurrent queries can share one instance.
type Registry struct {
	tools    map[string]Tool
	order    []string
	observer func(name string)
}

// NewRegistry registers the given tools, enforcing unique names.
func NewRegistry(ts ...Tool) (*Registry, error) {
	reg := &Registry{tools: make(map[string]Tool)}
	for _, t := range ts {
		name := t.Definition().Name
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, ok := reg.tools[name]; ok {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		reg.tools[name] = t
		reg.order = append(reg.order, name)
	}
	return reg, nil
}

// Observe installs a callback invoked once per dispatched execution.
func (r *Registry) Observe(fn func(name string)) { r.observer = fn }

// Definitions returns tool schemas in registration order.
func (r *Registry) Definitions() []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute dispatches by name. The result's text is always safe to feed back
// to the model; its sources belong to the caller's query alone.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (Result, error) {
	t, ok := r.tools[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrToolMissing, name)
	}
	if r.observer != nil {
		r.observer(name)
	}
	return t.Execute(ctx, args), nil
}
