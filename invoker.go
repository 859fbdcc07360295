package chainy

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Invoker holds a transcript and a model binding and runs one model step per Ask.
// It is not safe for concurrent use.
type Invoker struct {
	backend    Backend
	model      string
	transcript *Transcript
	opts       invokerOptions
}

// NewInvoker creates an Invoker that addresses model through backend.
func NewInvoker(backend Backend, model string, opts ...InvokerOption) *Invoker {
	o := invokerOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	t := o.transcript
	if t == nil {
		t = NewTranscript()
	}
	return &Invoker{
		backend:    backend,
		model:      model,
		transcript: t,
		opts:       o,
	}
}

// Model returns the model name the Invoker addresses.
func (i *Invoker) Model() string { return i.model }

// Transcript returns the current transcript.
func (i *Invoker) Transcript() *Transcript { return i.transcript }

// Ask appends prompt as a user turn, runs one model step and returns the
// content of the final turn. WithTranscript replaces the transcript first.
func (i *Invoker) Ask(ctx context.Context, prompt string, opts ...AskOption) (string, error) {
	var o askOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.transcript != nil {
		i.transcript = o.transcript
	}
	i.transcript.Append(Turn{Role: RoleUser, Content: prompt})
	if _, err := i.Invoke(ctx, i.transcript, o.capabilities); err != nil {
		return "", err
	}
	last, _ := i.transcript.Last()
	return last.Content, nil
}

// Invoke sends t and the specs of caps to the model and appends the reply.
// When the reply requests capability invocations, each one is resolved and
// called in order and one tool turn per call is appended instead of the
// reply (or after it, with WithToolRequestTurns). Turns are appended only
// when every call succeeds; errors are returned unchanged.
func (i *Invoker) Invoke(ctx context.Context, t *Transcript, caps []*Capability) (*Transcript, error) {
	log := i.opts.logger.With().Str("transcript_id", t.ID()).Logger()

	req := Request{Model: i.model, Messages: t.Turns()}
	reg := NewRegistry()
	reg.Use(i.opts.middlewares...)
	for _, c := range caps {
		if c == nil {
			continue
		}
		req.Tools = append(req.Tools, c.Spec())
		reg.Register(c)
	}

	start := time.Now()
	resp, err := i.backend.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	reply := resp.Message
	log.Debug().
		Int("turns", len(req.Messages)).
		Int("tool_calls", len(reply.ToolCalls)).
		Dur("duration", time.Since(start)).
		Msg("model step")

	if len(reply.ToolCalls) == 0 {
		t.Append(reply)
		return t, nil
	}

	turns := make([]Turn, 0, len(reply.ToolCalls)+1)
	if i.opts.keepRequests {
		turns = append(turns, reply)
	}
	for _, call := range reply.ToolCalls {
		log.Debug().Str("tool", call.Function.Name).Msg("tool call")
		result, err := reg.Call(ctx, call)
		if err != nil {
			return nil, err
		}
		content, err := renderResult(result)
		if err != nil {
			return nil, err
		}
		turns = append(turns, Turn{
			Role:       RoleTool,
			Content:    content,
			ToolName:   call.Function.Name,
			ToolCallID: call.ID,
			Result:     result,
		})
	}
	t.Append(turns...)
	return t, nil
}
