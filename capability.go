package chainy

import (
	"context"
	"encoding/json"
	"regexp"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Parameter is one declared argument of a capability.
type Parameter struct {
	Name     string
	Type     SemanticType
	Optional bool
	// Default is filled in when an optional argument is absent. Nil means the
	// argument is simply omitted.
	Default any
}

// Param declares a required parameter.
func Param(name string, typ SemanticType) Parameter {
	return Parameter{Name: name, Type: ParseSemanticType(string(typ))}
}

// OptionalParam declares a parameter with a default value.
func OptionalParam(name string, typ SemanticType, def any) Parameter {
	return Parameter{Name: name, Type: ParseSemanticType(string(typ)), Optional: true, Default: def}
}

// Handler is the function behind a capability. The returned value becomes the
// content of the tool turn.
type Handler func(ctx context.Context, args Arguments) (any, error)

// Capability is a function exposed to the model together with its description.
// It is immutable once built.
type Capability struct {
	name        string
	description string
	params      []Parameter
	handler     Handler
	validator   *jsonschema.Schema
	opts        capabilityOptions
}

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// NewCapability builds a capability from an explicit parameter list.
// doc is the function's documentation; only its first line is kept.
func NewCapability(name, doc string, params []Parameter, fn Handler, opts ...CapabilityOption) (*Capability, error) {
	var o capabilityOptions
	for _, opt := range opts {
		opt(&o)
	}
	if fn == nil {
		return nil, invalidCapability("handler for %q must not be nil", name)
	}
	if !namePattern.MatchString(name) {
		return nil, invalidCapability("name %q must match %s", name, namePattern)
	}
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if !namePattern.MatchString(p.Name) {
			return nil, invalidCapability("parameter name %q of %q must match %s", p.Name, name, namePattern)
		}
		if seen[p.Name] {
			return nil, invalidCapability("duplicate parameter %q in %q", p.Name, name)
		}
		seen[p.Name] = true
	}
	c := &Capability{
		name:        name,
		description: firstLine(doc),
		params:      slices.Clone(params),
		handler:     fn,
		opts:        o,
	}
	validator, err := compileArguments(name, c.Spec().Function.Parameters)
	if err != nil {
		return nil, invalidCapability("compile argument schema for %q: %v", name, err)
	}
	c.validator = validator
	return c, nil
}

// FromFunc builds a capability from a typed function. The parameters are
// derived once from the exported fields of the argument struct T: property
// names come from json tags, order from field declaration, and a field is
// optional iff it has a default (jsonschema:"default=...") or omitempty.
// Arguments are expanded by name into T when the capability is called.
func FromFunc[T any, R any](
	name, doc string,
	fn func(ctx context.Context, args T) (R, error),
	opts ...CapabilityOption,
) (*Capability, error) {
	if fn == nil {
		return nil, invalidCapability("handler for %q must not be nil", name)
	}
	params, err := parametersFor[T]()
	if err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, args Arguments) (any, error) {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, &ClientError{Capability: name, Reason: "encode arguments: " + err.Error(), Err: ErrValidation}
		}
		var in T
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, &ClientError{Capability: name, Reason: "decode arguments: " + err.Error(), Err: ErrValidation}
		}
		return fn(ctx, in)
	}
	return NewCapability(name, doc, params, handler, opts...)
}

func (c *Capability) Name() string        { return c.name }
func (c *Capability) Description() string { return c.description }

// Parameters returns a copy of the declared parameters in declaration order.
func (c *Capability) Parameters() []Parameter { return slices.Clone(c.params) }

// Handler returns the underlying function. The capability does not own it.
func (c *Capability) Handler() Handler { return c.handler }

// Spec returns the wire description of the capability.
func (c *Capability) Spec() Spec {
	props := make(map[string]PropertySpec, len(c.params))
	order := make([]string, 0, len(c.params))
	required := make([]string, 0, len(c.params))
	for _, p := range c.params {
		props[p.Name] = PropertySpec{Type: p.Type}
		order = append(order, p.Name)
		if !p.Optional {
			required = append(required, p.Name)
		}
	}
	return Spec{
		Type: "function",
		Function: FunctionSpec{
			Name:        c.name,
			Description: c.description,
			Parameters: ParametersSpec{
				Type:       "object",
				Properties: props,
				Required:   required,
				order:      order,
			},
		},
	}
}

// Call fills defaults, coerces args and checks their names, then runs the
// handler. A null optional argument counts as absent.
// Errors returned by the handler are passed through unchanged.
func (c *Capability) Call(ctx context.Context, args map[string]any) (any, error) {
	in := make(Arguments, len(c.params))
	for k, v := range args {
		in[k] = v
	}
	for _, p := range c.params {
		v, ok := in[p.Name]
		if ok && v == nil && p.Optional {
			delete(in, p.Name)
			ok = false
		}
		if !ok {
			if p.Optional && p.Default != nil {
				in[p.Name] = p.Default
			}
			continue
		}
		if !c.opts.noCoercion {
			in[p.Name] = coerce(v, p.Type)
		}
	}
	if err := validateArguments(c.name, c.validator, in); err != nil {
		return nil, err
	}
	return c.handler(ctx, in)
}

// firstLine returns the trimmed first line of doc.
func firstLine(doc string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(doc), "\n")
	return strings.TrimSpace(line)
}

// renderResult turns a handler result into tool turn content.
func renderResult(v any) (string, error) {
	switch r := v.(type) {
	case nil:
		return "", nil
	case string:
		return r, nil
	case []byte:
		return string(r), nil
	case json.RawMessage:
		return string(r), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", &SystemError{Err: err}
	}
	return string(b), nil
}
