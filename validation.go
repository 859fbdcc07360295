package chainy

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaValidator validates a JSON-like value. *jsonschema.Schema implements it.
type schemaValidator interface {
	Validate(v any) error
}

// compileArguments compiles the argument names of a capability into a
// validator: every required name must be present and no other name is
// accepted. Value types are not checked; coercion is best effort and
// handlers receive what is left.
func compileArguments(name string, params ParametersSpec) (*jsonschema.Schema, error) {
	props := make(map[string]any, len(params.Properties))
	for p := range params.Properties {
		props[p] = map[string]any{}
	}
	doc := map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             params.Required,
		"additionalProperties": false,
	}
	raw, err := toJSONValue(doc)
	if err != nil {
		return nil, err
	}
	loc := "mem:///" + name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(loc, raw); err != nil {
		return nil, err
	}
	return c.Compile(loc)
}

// validateArguments runs schema validation on args. The value is normalized
// through JSON first so numbers reach the validator as json.Number.
func validateArguments(name string, validate schemaValidator, args map[string]any) error {
	v, err := toJSONValue(args)
	if err != nil {
		return &ClientError{Capability: name, Reason: "arguments are not JSON encodable: " + err.Error(), Err: ErrValidation}
	}
	if err := validate.Validate(v); err != nil {
		return &ClientError{Capability: name, Reason: err.Error(), Err: ErrValidation}
	}
	return nil
}

func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}
