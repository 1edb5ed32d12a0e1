package dataset

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the field value types a Record may hold.
// Only Null, String, Int, Float, Bool, Array, and Object implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents a JSON null field value.
type Null struct{}

func (Null) value() {}

// String represents a string field value.
type String string

func (String) value() {}

// Int represents an integer field value. Always int64.
type Int int64

func (Int) value() {}

// Float represents a non-integral numeric field value.
// Integral floats are normalized to Int at conversion and serialization
// boundaries so that 2.0 and 2 digest identically.
type Float float64

func (Float) value() {}

// Bool represents a boolean field value.
type Bool bool

func (Bool) value() {}

// Array represents an ordered list of field values.
type Array []Value

func (Array) value() {}

// Object represents a map of field name to value.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for characters
// outside the BMP; canonical digests require the UTF-16 ordering.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// compareKeysUTF16 compares strings by UTF-16 code units as required by
// RFC 8785. utf16.Encode handles surrogate pairs correctly.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// Equal reports deep equality of two values after numeric normalization.
func Equal(a, b Value) bool {
	a = normalize(a)
	b = normalize(b)

	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, exists := bv[k]
			if !exists || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// normalize collapses integral floats into Int so that 2.0 == 2.
func normalize(v Value) Value {
	f, ok := v.(Float)
	if !ok {
		return v
	}
	if float64(f) == float64(int64(f)) {
		return Int(int64(f))
	}
	return v
}
