// Package testutil provides test helpers for chainy (e.g. ScriptedBackend).
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/skosovsky/chainy"
)

// ErrScriptExhausted is returned when a ScriptedBackend receives more requests than it has replies.
var ErrScriptExhausted = errors.New("testutil: no scripted reply left")

// ScriptedBackend is a chainy.Backend that replays Replies in order and records every request.
type ScriptedBackend struct {
	Replies []chainy.Turn
	// ChatFn, when set, is called instead of replaying Replies.
	ChatFn func(ctx context.Context, req chainy.Request) (chainy.Response, error)

	mu       sync.Mutex
	requests []chainy.Request
}

// NewScriptedBackend returns a backend that answers with replies in order.
func NewScriptedBackend(replies ...chainy.Turn) *ScriptedBackend {
	return &ScriptedBackend{Replies: replies}
}

// Chat records req and returns the next scripted reply.
func (b *ScriptedBackend) Chat(ctx context.Context, req chainy.Request) (chainy.Response, error) {
	b.mu.Lock()
	n := len(b.requests)
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.ChatFn != nil {
		return b.ChatFn(ctx, req)
	}
	if n >= len(b.Replies) {
		return chainy.Response{}, ErrScriptExhausted
	}
	return chainy.Response{Message: b.Replies[n]}, nil
}

// Requests returns the requests received so far.
func (b *ScriptedBackend) Requests() []chainy.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]chainy.Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// Reply is shorthand for a plain assistant turn.
func Reply(content string) chainy.Turn {
	return chainy.Turn{Role: chainy.RoleAssistant, Content: content}
}

// CallReply is shorthand for an assistant turn requesting one capability invocation.
func CallReply(name string, args map[string]any) chainy.Turn {
	return chainy.Turn{
		Role: chainy.RoleAssistant,
		ToolCalls: []chainy.ToolCall{{
			Function: chainy.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

// Ensure ScriptedBackend implements Backend.
var _ chainy.Backend = (*ScriptedBackend)(nil)
