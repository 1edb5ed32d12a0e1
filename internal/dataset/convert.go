package dataset

import "fmt"

// FromAny converts a decoded YAML/JSON value into a Value.
// YAML decodes numbers as int or float64 and JSON decodes everything
// numeric as float64; integral floats collapse to Int here so the two
// front ends digest identically.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return normalize(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case float64:
		return normalize(Float(val)), nil
	case float32:
		return normalize(Float(float64(val))), nil
	case bool:
		return Bool(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			converted, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = converted
		}
		return arr, nil
	case map[string]any:
		return ObjectFromAny(val)
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// ObjectFromAny converts a decoded map into an Object.
func ObjectFromAny(m map[string]any) (Object, error) {
	obj := make(Object, len(m))
	for k, v := range m {
		converted, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		obj[k] = converted
	}
	return obj, nil
}

// ToAny converts a Value back into plain Go values for generic JSON
// rendering (reports, CLI output).
func ToAny(v Value) any {
	switch val := normalize(v).(type) {
	case Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}
