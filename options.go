package chainy

import (
	"github.com/rs/zerolog"
)

// capabilityOptions hold optional capability settings.
type capabilityOptions struct {
	noCoercion bool
}

// CapabilityOption configures a capability (e.g. WithoutCoercion).
type CapabilityOption func(*capabilityOptions)

// WithoutCoercion disables best-effort conversion of arguments to their
// declared types. Arguments must then match the schema exactly.
func WithoutCoercion() CapabilityOption {
	return func(o *capabilityOptions) {
		o.noCoercion = true
	}
}

// InvokerOption configures an Invoker.
type InvokerOption func(*invokerOptions)

type invokerOptions struct {
	logger       zerolog.Logger
	middlewares  []Middleware
	keepRequests bool
	transcript   *Transcript
}

// WithLogger sets the logger used for model steps and tool calls.
func WithLogger(logger zerolog.Logger) InvokerOption {
	return func(o *invokerOptions) {
		o.logger = logger
	}
}

// WithMiddleware wraps every capability call made by the Invoker
// (first middleware is outermost).
func WithMiddleware(middlewares ...Middleware) InvokerOption {
	return func(o *invokerOptions) {
		o.middlewares = append(o.middlewares, middlewares...)
	}
}

// WithToolRequestTurns keeps the assistant turn that requested tool calls in
// the transcript, followed by the tool turns. By default the tool turns
// replace it.
func WithToolRequestTurns() InvokerOption {
	return func(o *invokerOptions) {
		o.keepRequests = true
	}
}

// WithInitialTranscript starts the Invoker with t instead of an empty transcript.
func WithInitialTranscript(t *Transcript) InvokerOption {
	return func(o *invokerOptions) {
		o.transcript = t
	}
}

// AskOption configures a single Ask call.
type AskOption func(*askOptions)

type askOptions struct {
	transcript   *Transcript
	capabilities []*Capability
}

// WithTranscript replaces the Invoker's transcript before the prompt is appended.
func WithTranscript(t *Transcript) AskOption {
	return func(o *askOptions) {
		o.transcript = t
	}
}

// WithCapabilities makes caps available to the model for this call.
func WithCapabilities(caps ...*Capability) AskOption {
	return func(o *askOptions) {
		o.capabilities = append(o.capabilities, caps...)
	}
}
