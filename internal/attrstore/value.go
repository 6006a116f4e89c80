package attrstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/sowilo/internal/apperr"
)

// ValueType is the presentation type of an attribute value.
type ValueType string

// Supported value types.
const (
	TypeText    ValueType = "Text"
	TypeNumber  ValueType = "Number"
	TypeBoolean ValueType = "Boolean"
	TypeDate    ValueType = "Date"
	TypeList    ValueType = "List"
	TypeURL     ValueType = "URL"
)

// ValueTypes lists every supported type.
var ValueTypes = []ValueType{TypeText, TypeNumber, TypeBoolean, TypeDate, TypeList, TypeURL}

// ParseValueType maps a type name to a ValueType. Unknown names yield Text.
func ParseValueType(s string) ValueType {
	for _, t := range ValueTypes {
		if string(t) == s {
			return t
		}
	}
	return TypeText
}

// InferType guesses the presentation type of a stored value.
func InferType(v any) ValueType {
	switch v.(type) {
	case bool:
		return TypeBoolean
	case float64, float32, int, int64, int32:
		return TypeNumber
	case []any, []string:
		return TypeList
	default:
		return TypeText
	}
}

// DefaultValue returns the initial value for a new attribute of type t.
func DefaultValue(t ValueType, now time.Time) any {
	switch t {
	case TypeNumber:
		return 0.0
	case TypeBoolean:
		return false
	case TypeDate:
		return now.UTC().Format(time.RFC3339Nano)
	case TypeList:
		return []any{}
	default:
		return ""
	}
}

// Coerce converts an edited value to the shape its type expects.
// Invalid input is reported wrapped in apperr.ErrInvalid.
func Coerce(t ValueType, v any) (any, error) {
	switch t {
	case TypeNumber:
		return coerceNumber(v)
	case TypeBoolean:
		return coerceBool(v)
	case TypeDate:
		return coerceDate(v)
	case TypeList:
		return coerceList(v), nil
	case TypeURL:
		s := toString(v)
		if err := validation.Validate(s, is.URL); err != nil {
			return nil, fmt.Errorf("attrstore: url %q: %v: %w", s, err, apperr.ErrInvalid)
		}
		return s, nil
	default:
		return toString(v), nil
	}
}

// CoerceAll coerces every attribute with a declared type. Attributes without
// a declared type pass through unchanged.
func CoerceAll(attrs map[string]any, types map[string]ValueType) (map[string]any, error) {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		t, ok := types[k]
		if !ok {
			out[k] = v
			continue
		}
		cv, err := Coerce(t, v)
		if err != nil {
			return nil, fmt.Errorf("attrstore: attribute %q: %w", k, err)
		}
		out[k] = cv
	}
	return out, nil
}

func coerceNumber(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0.0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("attrstore: number %q: %w", n, apperr.ErrInvalid)
		}
		return f, nil
	case nil:
		return 0.0, nil
	}
	return nil, fmt.Errorf("attrstore: number %v: %w", v, apperr.ErrInvalid)
}

func coerceBool(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		if b == "" {
			return false, nil
		}
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return nil, fmt.Errorf("attrstore: boolean %q: %w", b, apperr.ErrInvalid)
		}
		return parsed, nil
	case nil:
		return false, nil
	}
	return nil, fmt.Errorf("attrstore: boolean %v: %w", v, apperr.ErrInvalid)
}

func coerceDate(v any) (any, error) {
	s := toString(v)
	if err := validation.Validate(s, validation.Required, validation.Date(time.RFC3339)); err == nil {
		return s, nil
	}
	if err := validation.Validate(s, validation.Date(time.DateOnly)); err != nil {
		return nil, fmt.Errorf("attrstore: date %q: %v: %w", s, err, apperr.ErrInvalid)
	}
	return s, nil
}

func coerceList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	case nil:
		return []any{}
	case string:
		out := []any{}
		for _, part := range strings.Split(l, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return []any{v}
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
