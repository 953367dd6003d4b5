// Package tools defines the tool execution contract used by the planner's
// investigation step: a call/result pair, an executor interface, a registry,
// and an LRU result cache. Both builtin tools are pure functions of their
// arguments, which is what makes the cache safe.
package tools

import "context"

// ToolCall is one invocation request.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is the outcome of one invocation. Content is a short
// human-readable summary suitable for the planning trace; Data carries the
// structured payload.
type ToolResult struct {
	CallID  string         `json:"call_id,omitempty"`
	Content string         `json:"content"`
	Data    map[string]any `json:"data,omitempty"`
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
}

// Definition describes a tool for discovery.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Executor runs one tool. Implementations must be safe for concurrent use.
type Executor interface {
	Execute(ctx context.Context, call ToolCall) (*ToolResult, error)
	Definition() Definition
}
