package chainy

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Registry maps capability names to capabilities and runs calls through the
// configured middleware chain.
type Registry struct {
	mu          sync.RWMutex
	caps        map[string]*Capability
	middlewares []Middleware
}

// NewRegistry creates a Registry holding caps.
func NewRegistry(caps ...*Capability) *Registry {
	r := &Registry{caps: make(map[string]*Capability, len(caps))}
	for _, c := range caps {
		r.Register(c)
	}
	return r
}

// Register adds a capability. A capability with the same name is replaced.
func (r *Registry) Register(c *Capability) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[c.Name()] = c
}

// Use replaces the middleware chain (first middleware is outermost).
func (r *Registry) Use(middlewares ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = slices.Clone(middlewares)
}

// Lookup returns the capability with the given name, or (nil, false) if not found.
func (r *Registry) Lookup(name string) (*Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[name]
	return c, ok
}

// Resolve is Lookup with an error: it returns ErrCapabilityNotFound for unknown names.
func (r *Registry) Resolve(name string) (*Capability, error) {
	c, ok := r.Lookup(name)
	if !ok {
		return nil, notFound(name)
	}
	return c, nil
}

// All returns the registered capabilities sorted by name for deterministic order.
func (r *Registry) All() []*Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Capability, 0, len(r.caps))
	for _, c := range r.caps {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Capability) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return out
}

// Call resolves the capability named by call and runs it with the call's arguments.
func (r *Registry) Call(ctx context.Context, call ToolCall) (any, error) {
	c, err := r.Resolve(call.Function.Name)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	middlewares := r.middlewares
	r.mu.RUnlock()

	h := Handler(func(ctx context.Context, args Arguments) (any, error) {
		return c.Call(ctx, args)
	})
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](c, h)
	}
	return h(ctx, call.Function.Arguments)
}
