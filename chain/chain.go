// Package chain pipes a sequence of prompts through a model, feeding each
// answer into the next prompt.
package chain

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/skosovsky/chainy"
)

// Asker is the part of *chainy.Invoker the chain needs.
type Asker interface {
	Ask(ctx context.Context, prompt string, opts ...chainy.AskOption) (string, error)
}

// Chain runs prompts sequentially against one Asker.
type Chain struct {
	asker  Asker
	caps   []*chainy.Capability
	logger zerolog.Logger
	out    io.Writer
}

// Option configures a Chain.
type Option func(*Chain)

// WithCapabilities makes caps available to the model at every step.
func WithCapabilities(caps ...*chainy.Capability) Option {
	return func(c *Chain) {
		c.caps = append(c.caps, caps...)
	}
}

// WithLogger sets the step logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Chain) {
		c.logger = logger
	}
}

// WithOutput sets where each prompt is announced before it runs.
func WithOutput(w io.Writer) Option {
	return func(c *Chain) {
		c.out = w
	}
}

// New creates a Chain that asks through asker.
func New(asker Asker, opts ...Option) *Chain {
	c := &Chain{asker: asker, logger: zerolog.Nop(), out: io.Discard}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FormatPrompt joins a step prompt with the previous result.
func FormatPrompt(prompt, input string) string {
	return prompt + "\nInput: " + input
}

// Run feeds input through prompts in order and returns the last answer.
// With no prompts the input is returned unchanged. The first failing step
// stops the chain and its error is returned.
func (c *Chain) Run(ctx context.Context, input string, prompts []string) (string, error) {
	result := input
	for i, prompt := range prompts {
		if _, err := fmt.Fprintln(c.out, prompt); err != nil {
			return "", err
		}
		c.logger.Info().Int("step", i+1).Int("steps", len(prompts)).Msg("chain step")
		out, err := c.asker.Ask(ctx, FormatPrompt(prompt, result), chainy.WithCapabilities(c.caps...))
		if err != nil {
			return "", fmt.Errorf("chain step %d: %w", i+1, err)
		}
		result = out
	}
	return result, nil
}
