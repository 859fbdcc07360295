package chainy

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// coerce converts v towards typ on a best-effort basis. When a conversion is
// not possible, v is returned unchanged and validation reports the mismatch.
func coerce(v any, typ SemanticType) any {
	if v == nil {
		return nil
	}
	switch typ {
	case TypeInteger:
		if f, ok := v.(float64); ok && f != math.Trunc(f) {
			return v
		}
		if s, ok := v.(string); ok {
			// Decimal only: "010" is ten, not eight.
			if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				return n
			}
			return v
		}
		if n, err := cast.ToInt64E(v); err == nil {
			return n
		}
	case TypeNumber:
		if n, err := cast.ToFloat64E(v); err == nil {
			return n
		}
	case TypeString:
		switch v.(type) {
		case map[string]any, []any:
			return v
		}
		if s, err := cast.ToStringE(v); err == nil {
			return s
		}
	case TypeBoolean:
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	case TypeArray:
		if s, ok := v.(string); ok {
			var out []any
			if err := json.Unmarshal([]byte(s), &out); err == nil {
				return out
			}
			return v
		}
		if out, err := cast.ToSliceE(v); err == nil {
			return out
		}
	case TypeObject:
		if s, ok := v.(string); ok {
			var out map[string]any
			if err := json.Unmarshal([]byte(s), &out); err == nil {
				return out
			}
			return v
		}
		if out, err := cast.ToStringMapE(v); err == nil {
			return out
		}
	}
	return v
}

// Arguments is the argument mapping handed to a Handler, keyed by parameter name.
// Values have already been coerced and validated against the parameter list.
type Arguments map[string]any

// String returns the named argument as a string, or "" when absent.
func (a Arguments) String(name string) string { return cast.ToString(a[name]) }

// Int returns the named argument as an int, or 0 when absent or not numeric.
func (a Arguments) Int(name string) int { return cast.ToInt(a[name]) }

// Float returns the named argument as a float64, or 0 when absent or not numeric.
func (a Arguments) Float(name string) float64 { return cast.ToFloat64(a[name]) }

// Bool returns the named argument as a bool, or false when absent.
func (a Arguments) Bool(name string) bool { return cast.ToBool(a[name]) }

// Has reports whether the named argument is present.
func (a Arguments) Has(name string) bool {
	_, ok := a[name]
	return ok
}
