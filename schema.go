package chainy

import (
	"encoding/json"
	"maps"
	"reflect"
	"slices"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// SemanticType is the JSON Schema type of a capability parameter.
type SemanticType string

// The closed set of semantic types. TypeString is the default branch.
const (
	TypeInteger SemanticType = "integer"
	TypeNumber  SemanticType = "number"
	TypeString  SemanticType = "string"
	TypeBoolean SemanticType = "boolean"
	TypeArray   SemanticType = "array"
	TypeObject  SemanticType = "object"
)

// ParseSemanticType maps a JSON Schema type name to a SemanticType.
// Unknown names, "null" and the empty string map to TypeString.
func ParseSemanticType(s string) SemanticType {
	switch t := SemanticType(s); t {
	case TypeInteger, TypeNumber, TypeString, TypeBoolean, TypeArray, TypeObject:
		return t
	default:
		return TypeString
	}
}

// Spec is the wire form of a capability as expected by tool-calling models.
type Spec struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec describes the function part of a Spec.
type FunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ParametersSpec `json:"parameters"`
}

// ParametersSpec is the object schema of a function's arguments.
// Properties are encoded in declaration order when the spec comes from a
// Capability, otherwise sorted by name.
type ParametersSpec struct {
	Type       string                  `json:"type"`
	Properties map[string]PropertySpec `json:"properties"`
	Required   []string                `json:"required"`

	order []string
}

func (p ParametersSpec) MarshalJSON() ([]byte, error) {
	props := orderedmap.New[string, PropertySpec]()
	for _, name := range p.order {
		if prop, ok := p.Properties[name]; ok {
			props.Set(name, prop)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(p.Properties)) {
		if _, ok := props.Get(name); !ok {
			props.Set(name, p.Properties[name])
		}
	}
	required := p.Required
	if required == nil {
		required = []string{}
	}
	return json.Marshal(struct {
		Type       string                                       `json:"type"`
		Properties *orderedmap.OrderedMap[string, PropertySpec] `json:"properties"`
		Required   []string                                     `json:"required"`
	}{p.Type, props, required})
}

// PropertySpec is the schema of a single argument.
type PropertySpec struct {
	Type SemanticType `json:"type"`
}

// reflector inlines every struct, so the root schema carries the properties
// directly (also for unnamed argument structs) in field declaration order.
var reflector = &jsonschema.Reflector{
	DoNotReference:            true,
	AllowAdditionalProperties: true,
}

// parametersFor derives the ordered parameter list of argument struct T.
// A field is optional iff it declares a default (jsonschema:"default=...")
// or is marked omitempty.
func parametersFor[T any]() ([]Parameter, error) {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, invalidCapability("argument type %s is not a struct", typ)
	}
	schema := reflector.ReflectFromType(typ)
	if schema == nil {
		return nil, invalidCapability("schema reflection returned nil for %s", typ)
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	var params []Parameter
	if schema.Properties == nil {
		return params, nil
	}
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		prop := pair.Value
		params = append(params, Parameter{
			Name:     pair.Key,
			Type:     semanticTypeOf(prop),
			Optional: !required[pair.Key] || (prop != nil && prop.Default != nil),
			Default:  defaultOf(prop),
		})
	}
	return params, nil
}

// semanticTypeOf unwraps nullable unions (oneOf/anyOf with "null") to the
// first non-null member before mapping.
func semanticTypeOf(s *jsonschema.Schema) SemanticType {
	if s == nil {
		return TypeString
	}
	if s.Type != "" && s.Type != "null" {
		return ParseSemanticType(s.Type)
	}
	for _, branch := range [][]*jsonschema.Schema{s.OneOf, s.AnyOf} {
		for _, inner := range branch {
			if inner != nil && inner.Type != "" && inner.Type != "null" {
				return ParseSemanticType(inner.Type)
			}
		}
	}
	return TypeString
}

func defaultOf(s *jsonschema.Schema) any {
	if s == nil {
		return nil
	}
	return s.Default
}
