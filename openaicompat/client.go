// Package openaicompat is a chainy.Backend for servers that speak the OpenAI
// chat completions API, including Ollama's /v1 endpoint.
package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/skosovsky/chainy"
)

// ErrNoChoices is returned when the server answers without any choice.
var ErrNoChoices = errors.New("openaicompat: response has no choices")

// Client adapts an OpenAI-compatible server to chainy.Backend.
type Client struct {
	api *openai.Client
}

// Option configures a Client.
type Option func(*openai.ClientConfig)

// WithBaseURL points the client at a compatible server, e.g. http://localhost:11434/v1.
func WithBaseURL(baseURL string) Option {
	return func(c *openai.ClientConfig) {
		c.BaseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *openai.ClientConfig) {
		c.HTTPClient = client
	}
}

// NewClient creates a Client authenticating with apiKey (may be empty for local servers).
func NewClient(apiKey string, opts ...Option) *Client {
	cfg := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{api: openai.NewClientWithConfig(cfg)}
}

// Chat sends one chat completion request.
func (c *Client) Chat(ctx context.Context, req chainy.Request) (chainy.Response, error) {
	body := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
	}
	for _, t := range req.Messages {
		m, err := toWire(t)
		if err != nil {
			return chainy.Response{}, err
		}
		body.Messages = append(body.Messages, m)
	}
	for _, s := range req.Tools {
		body.Tools = append(body.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Function.Name,
				Description: s.Function.Description,
				Parameters:  s.Function.Parameters,
			},
		})
	}
	resp, err := c.api.CreateChatCompletion(ctx, body)
	if err != nil {
		return chainy.Response{}, err
	}
	if len(resp.Choices) == 0 {
		return chainy.Response{}, ErrNoChoices
	}
	turn, err := fromWire(resp.Choices[0].Message)
	if err != nil {
		return chainy.Response{}, err
	}
	return chainy.Response{Message: turn}, nil
}

// Embed returns the embedding of text computed by model.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float64, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openaicompat: no embedding returned for model %q", model)
	}
	out := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		out[i] = float64(v)
	}
	return out, nil
}

// toWire converts a turn. Tool turns without a call ID have no matching
// request in the conversation, so they are sent as user turns naming the tool.
func toWire(t chainy.Turn) (openai.ChatCompletionMessage, error) {
	m := openai.ChatCompletionMessage{
		Role:    string(t.Role),
		Content: t.Content,
	}
	if t.Role == chainy.RoleTool {
		if t.ToolCallID == "" {
			m.Role = openai.ChatMessageRoleUser
			m.Content = fmt.Sprintf("Result of tool %s:\n%s", t.ToolName, t.Content)
			return m, nil
		}
		m.ToolCallID = t.ToolCallID
		m.Name = t.ToolName
	}
	for _, call := range t.ToolCalls {
		args, err := json.Marshal(call.Function.Arguments)
		if err != nil {
			return m, fmt.Errorf("encode arguments of %q: %w", call.Function.Name, err)
		}
		m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
			ID:   call.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      call.Function.Name,
				Arguments: string(args),
			},
		})
	}
	return m, nil
}

// fromWire converts the reply. Arguments arrive as a JSON string and are
// decoded into a map; undecodable arguments are a client error for that tool.
func fromWire(m openai.ChatCompletionMessage) (chainy.Turn, error) {
	t := chainy.Turn{
		Role:    chainy.Role(m.Role),
		Content: m.Content,
	}
	for _, call := range m.ToolCalls {
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return t, &chainy.ClientError{
					Capability: call.Function.Name,
					Reason:     "json parse error: " + err.Error(),
					Err:        chainy.ErrValidation,
				}
			}
		}
		t.ToolCalls = append(t.ToolCalls, chainy.ToolCall{
			ID:       call.ID,
			Function: chainy.FunctionCall{Name: call.Function.Name, Arguments: args},
		})
	}
	return t, nil
}

var _ chainy.Backend = (*Client)(nil)
