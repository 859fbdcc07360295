// Package ollama is a chainy.Backend for the Ollama chat and embeddings API,
// built on the official Go client.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/skosovsky/chainy"
)

// StatusError is returned when the server answers with an error status.
type StatusError = api.StatusError

// Client talks to an Ollama server. Each call is a single blocking request;
// nothing is retried.
type Client struct {
	api *api.Client
	err error
}

// NewClient creates a Client. Without options it addresses DefaultBaseURL.
// An unparsable base URL is reported by the first call.
func NewClient(opts ...Option) *Client {
	o := apply(opts)
	base, err := url.Parse(o.baseURL)
	if err != nil {
		return &Client{err: fmt.Errorf("ollama: base url: %w", err)}
	}
	hc := o.client
	if len(o.headers) > 0 {
		copied := *hc
		copied.Transport = &headerTransport{next: hc.Transport, headers: o.headers}
		hc = &copied
	}
	return &Client{api: api.NewClient(base, hc)}
}

// Chat sends one non-streaming /api/chat request.
func (c *Client) Chat(ctx context.Context, req chainy.Request) (chainy.Response, error) {
	if c.err != nil {
		return chainy.Response{}, c.err
	}
	stream := false
	body := &api.ChatRequest{
		Model:    req.Model,
		Messages: make([]api.Message, 0, len(req.Messages)),
		Stream:   &stream,
	}
	for _, t := range req.Messages {
		body.Messages = append(body.Messages, toWire(t))
	}
	if len(req.Tools) > 0 {
		tools, err := toolsToWire(req.Tools)
		if err != nil {
			return chainy.Response{}, err
		}
		body.Tools = tools
	}

	var last api.ChatResponse
	err := c.api.Chat(ctx, body, func(resp api.ChatResponse) error {
		last = resp
		return nil
	})
	if err != nil {
		return chainy.Response{}, err
	}
	return chainy.Response{Message: fromWire(last.Message)}, nil
}

// Embed returns the embedding of text computed by model.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float64, error) {
	if c.err != nil {
		return nil, c.err
	}
	resp, err := c.api.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  model,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

// toolsToWire re-decodes the specs into the client's tool type, which mirrors
// the same JSON shape.
func toolsToWire(specs []chainy.Spec) (api.Tools, error) {
	raw, err := json.Marshal(specs)
	if err != nil {
		return nil, fmt.Errorf("encode tools: %w", err)
	}
	var tools api.Tools
	if err := json.Unmarshal(raw, &tools); err != nil {
		return nil, fmt.Errorf("decode tools: %w", err)
	}
	return tools, nil
}

func toWire(t chainy.Turn) api.Message {
	m := api.Message{
		Role:    string(t.Role),
		Content: t.Content,
	}
	for _, call := range t.ToolCalls {
		m.ToolCalls = append(m.ToolCalls, api.ToolCall{
			Function: api.ToolCallFunction{
				Name:      call.Function.Name,
				Arguments: api.ToolCallFunctionArguments(call.Function.Arguments),
			},
		})
	}
	return m
}

func fromWire(m api.Message) chainy.Turn {
	t := chainy.Turn{
		Role:    chainy.Role(m.Role),
		Content: m.Content,
	}
	for _, tc := range m.ToolCalls {
		t.ToolCalls = append(t.ToolCalls, chainy.ToolCall{
			Function: chainy.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: map[string]any(tc.Function.Arguments),
			},
		})
	}
	return t
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	next    http.RoundTripper
	headers map[string]string
}

func (h *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	next := h.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

var _ chainy.Backend = (*Client)(nil)
