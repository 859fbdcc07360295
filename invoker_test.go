package chainy

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns a backend that replies with replies in order and records requests.
func scripted(t *testing.T, replies ...Turn) (Backend, *[]Request) {
	t.Helper()
	var reqs []Request
	return BackendFunc(func(_ context.Context, req Request) (Response, error) {
		reqs = append(reqs, req)
		require.Less(t, len(reqs)-1, len(replies), "unexpected model step")
		return Response{Message: replies[len(reqs)-1]}, nil
	}), &reqs
}

func toolCall(name string, args map[string]any) ToolCall {
	return ToolCall{Function: FunctionCall{Name: name, Arguments: args}}
}

func echoCapability(t *testing.T) *Capability {
	t.Helper()
	c, err := NewCapability("echo", "Echoes text.", []Parameter{Param("text", TypeString)},
		func(_ context.Context, a Arguments) (any, error) {
			return "echo: " + a.String("text"), nil
		})
	require.NoError(t, err)
	return c
}

func TestAsk_NoToolCall(t *testing.T) {
	backend, reqs := scripted(t,
		Turn{Role: RoleAssistant, Content: "first"},
		Turn{Role: RoleAssistant, Content: "second"},
	)
	inv := NewInvoker(backend, "qwen2.5")

	out, err := inv.Ask(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", out)
	assert.Equal(t, 2, inv.Transcript().Len())

	out, err = inv.Ask(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, "second", out)
	assert.Equal(t, 4, inv.Transcript().Len())

	turns := inv.Transcript().Turns()
	assert.Equal(t, []Role{RoleUser, RoleAssistant, RoleUser, RoleAssistant},
		[]Role{turns[0].Role, turns[1].Role, turns[2].Role, turns[3].Role})
	assert.Equal(t, "p1", turns[0].Content)
	assert.Equal(t, "p2", turns[2].Content)

	require.Len(t, *reqs, 2)
	assert.Equal(t, "qwen2.5", (*reqs)[0].Model)
	assert.Nil(t, (*reqs)[0].Tools, "no capabilities means no tools in the request")
	assert.Len(t, (*reqs)[1].Messages, 3)
}

func TestAsk_ToolCallReplacesReply(t *testing.T) {
	echo := echoCapability(t)
	backend, reqs := scripted(t, Turn{
		Role:      RoleAssistant,
		ToolCalls: []ToolCall{toolCall("echo", map[string]any{"text": "hi"})},
	})
	inv := NewInvoker(backend, "m")

	out, err := inv.Ask(context.Background(), "say hi", WithCapabilities(echo))
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)

	turns := inv.Transcript().Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, RoleTool, turns[1].Role)
	assert.Equal(t, "echo", turns[1].ToolName)
	assert.Equal(t, "echo: hi", turns[1].Result)

	require.Len(t, *reqs, 1)
	require.Len(t, (*reqs)[0].Tools, 1)
	assert.Equal(t, echo.Spec(), (*reqs)[0].Tools[0])
}

func TestAsk_NilCapabilitiesSkipped(t *testing.T) {
	echo := echoCapability(t)
	backend, reqs := scripted(t, Turn{Role: RoleAssistant, ToolCalls: []ToolCall{toolCall("echo", map[string]any{"text": "hi"})}})
	inv := NewInvoker(backend, "m")

	var out string
	var err error
	require.NotPanics(t, func() {
		out, err = inv.Ask(context.Background(), "p", WithCapabilities(nil, echo))
	})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
	require.Len(t, (*reqs)[0].Tools, 1)
}

func TestAsk_MultipleToolCalls(t *testing.T) {
	echo := echoCapability(t)
	backend, _ := scripted(t, Turn{
		Role: RoleAssistant,
		ToolCalls: []ToolCall{
			{ID: "call_1", Function: FunctionCall{Name: "echo", Arguments: map[string]any{"text": "a"}}},
			{ID: "call_2", Function: FunctionCall{Name: "echo", Arguments: map[string]any{"text": "b"}}},
		},
	})
	inv := NewInvoker(backend, "m")

	out, err := inv.Ask(context.Background(), "twice", WithCapabilities(echo))
	require.NoError(t, err)
	assert.Equal(t, "echo: b", out)

	turns := inv.Transcript().Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "echo: a", turns[1].Content)
	assert.Equal(t, "call_1", turns[1].ToolCallID)
	assert.Equal(t, "echo: b", turns[2].Content)
	assert.Equal(t, "call_2", turns[2].ToolCallID)
}

func TestAsk_ToolRequestTurnsKept(t *testing.T) {
	echo := echoCapability(t)
	request := Turn{Role: RoleAssistant, ToolCalls: []ToolCall{toolCall("echo", map[string]any{"text": "x"})}}
	backend, _ := scripted(t, request)
	inv := NewInvoker(backend, "m", WithToolRequestTurns())

	_, err := inv.Ask(context.Background(), "p", WithCapabilities(echo))
	require.NoError(t, err)
	turns := inv.Transcript().Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, RoleAssistant, turns[1].Role)
	assert.Len(t, turns[1].ToolCalls, 1)
	assert.Equal(t, RoleTool, turns[2].Role)
}

func TestAsk_UnknownCapability(t *testing.T) {
	backend, _ := scripted(t, Turn{
		Role:      RoleAssistant,
		ToolCalls: []ToolCall{toolCall("delete_everything", nil)},
	})
	inv := NewInvoker(backend, "m")

	_, err := inv.Ask(context.Background(), "p", WithCapabilities(echoCapability(t)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapabilityNotFound)
	assert.Equal(t, 1, inv.Transcript().Len(), "only the user turn is kept")
}

func TestAsk_PartialFailureAppendsNothing(t *testing.T) {
	echo := echoCapability(t)
	backend, _ := scripted(t, Turn{
		Role: RoleAssistant,
		ToolCalls: []ToolCall{
			toolCall("echo", map[string]any{"text": "ok"}),
			toolCall("echo", map[string]any{"wrong": "name"}),
		},
	})
	inv := NewInvoker(backend, "m")

	_, err := inv.Ask(context.Background(), "p", WithCapabilities(echo))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1, inv.Transcript().Len())
}

func TestAsk_BackendErrorPropagates(t *testing.T) {
	inv := NewInvoker(BackendFunc(func(context.Context, Request) (Response, error) {
		return Response{}, errBoom
	}), "m")
	_, err := inv.Ask(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, errBoom, err)
}

func TestAsk_ToolErrorPropagates(t *testing.T) {
	failing, err := NewCapability("fail", "", nil, func(context.Context, Arguments) (any, error) {
		return nil, errBoom
	})
	require.NoError(t, err)
	backend, _ := scripted(t, Turn{Role: RoleAssistant, ToolCalls: []ToolCall{toolCall("fail", nil)}})
	inv := NewInvoker(backend, "m")
	_, err = inv.Ask(context.Background(), "p", WithCapabilities(failing))
	assert.Equal(t, errBoom, err)
}

func TestAsk_ReplacementTranscript(t *testing.T) {
	backend, reqs := scripted(t,
		Turn{Role: RoleAssistant, Content: "a"},
		Turn{Role: RoleAssistant, Content: "b"},
	)
	inv := NewInvoker(backend, "m")
	_, err := inv.Ask(context.Background(), "p1")
	require.NoError(t, err)

	replacement := NewTranscript(Turn{Role: RoleSystem, Content: "be brief"})
	out, err := inv.Ask(context.Background(), "p2", WithTranscript(replacement))
	require.NoError(t, err)
	assert.Equal(t, "b", out)
	assert.Same(t, replacement, inv.Transcript())
	assert.Equal(t, 3, replacement.Len())
	assert.Equal(t, []Turn{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "p2"},
	}, (*reqs)[1].Messages)
}

func TestNewInvoker_InitialTranscript(t *testing.T) {
	seed := NewTranscript(Turn{Role: RoleSystem, Content: "sys"})
	backend, _ := scripted(t, Turn{Role: RoleAssistant, Content: "ok"})
	inv := NewInvoker(backend, "m", WithInitialTranscript(seed))
	assert.Equal(t, "m", inv.Model())
	_, err := inv.Ask(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, 3, seed.Len())
}

func TestInvoke_UsesMiddlewareAndLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	panicky, err := NewCapability("panicky", "", nil, func(context.Context, Arguments) (any, error) {
		panic("boom")
	})
	require.NoError(t, err)
	backend, _ := scripted(t, Turn{Role: RoleAssistant, ToolCalls: []ToolCall{toolCall("panicky", nil)}})
	inv := NewInvoker(backend, "m", WithLogger(logger), WithMiddleware(WithRecovery()))

	tr := NewTranscript(Turn{Role: RoleUser, Content: "p"})
	_, err = inv.Invoke(context.Background(), tr, []*Capability{panicky})
	require.Error(t, err)
	assert.True(t, IsSystemError(err))
	assert.Contains(t, buf.String(), "model step")
	assert.Contains(t, buf.String(), tr.ID())
}

func TestInvoke_StructuredResult(t *testing.T) {
	type sumArgs struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	type sumOut struct {
		Sum int `json:"sum"`
	}
	add, err := FromFunc("add", "Adds two integers.", func(_ context.Context, in sumArgs) (sumOut, error) {
		return sumOut{Sum: in.A + in.B}, nil
	})
	require.NoError(t, err)
	backend, _ := scripted(t, Turn{
		Role:      RoleAssistant,
		ToolCalls: []ToolCall{toolCall("add", map[string]any{"a": 2, "b": "3"})},
	})
	inv := NewInvoker(backend, "m")
	tr, err := inv.Invoke(context.Background(), NewTranscript(), []*Capability{add})
	require.NoError(t, err)
	last, ok := tr.Last()
	require.True(t, ok)
	assert.JSONEq(t, `{"sum":5}`, last.Content)
	assert.Equal(t, sumOut{Sum: 5}, last.Result)
}
