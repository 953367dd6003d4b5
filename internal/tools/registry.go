package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps tool names to executors.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Executor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Executor)}
}

// Register adds a tool. Registering a duplicate name is an error.
func (r *Registry) Register(tool Executor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Definition().Name
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already exists: %s", name)
	}
	r.tools[name] = tool
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool, nil
}

// List returns the definitions of all registered tools, sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute dispatches the call to the named tool.
func (r *Registry) Execute(ctx context.Context, call ToolCall) (*ToolResult, error) {
	tool, err := r.Get(call.Name)
	if err != nil {
		return nil, err
	}
	return tool.Execute(ctx, call)
}
