package chainy

import (
	"context"
)

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one entry of a Transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// ToolCalls is set on assistant turns that request capability invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolName and ToolCallID are set on tool turns.
	ToolName   string `json:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	// Result holds the raw value returned by the capability for tool turns.
	// It is never sent to a backend.
	Result any `json:"-"`
}

// ToolCall is a single invocation request produced by the model.
type ToolCall struct {
	// ID is optional; some providers do not assign call IDs.
	ID       string       `json:"id,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the capability and carries its arguments by parameter name.
type FunctionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Request is what the Invoker hands to a Backend for one model step.
type Request struct {
	Model    string
	Messages []Turn
	// Tools is nil when no capabilities were supplied.
	Tools []Spec
}

// Response carries the model's reply turn.
type Response struct {
	Message Turn
}

// Backend sends a Request to a model and returns its reply.
// Implementations must not retry; errors are surfaced to the caller as is.
type Backend interface {
	Chat(ctx context.Context, req Request) (Response, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) (Response, error)

// Chat calls f.
func (f BackendFunc) Chat(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

var _ Backend = BackendFunc(nil)
