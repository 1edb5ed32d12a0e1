package schema

import (
	"fmt"
	"sort"

	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
)

// Violation is one schema failure, located by record and field.
// A top-level failure (malformed schema) has RecordIndex -1.
type Violation struct {
	RecordIndex int    `json:"record_index"`
	Identity    string `json:"identity,omitempty"`
	Field       string `json:"field,omitempty"`
	Rule        string `json:"rule"`
	Message     string `json:"message"`
}

func (v Violation) String() string {
	if v.RecordIndex < 0 {
		return fmt.Sprintf("schema: %s", v.Message)
	}
	return fmt.Sprintf("record %d (%s) field %q: %s", v.RecordIndex, v.Identity, v.Field, v.Message)
}

// Result is the outcome of validating one dataset against one schema.
type Result struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations,omitempty"`
}

// Validate checks every record against the schema. Each record fails fast
// on its first violation, but validation continues across records so the
// caller sees the full set of failing records, not just the first.
//
// A missing or malformed schema produces a single top-level violation
// rather than an error: schema problems are findings, not crashes.
func Validate(ds dataset.Dataset, s *Schema) Result {
	c, err := compile(s)
	if err != nil {
		return Result{
			Passed: false,
			Violations: []Violation{{
				RecordIndex: -1,
				Rule:        "schema",
				Message:     err.Error(),
			}},
		}
	}

	var violations []Violation
	for i, r := range ds.Records {
		identity, _ := ds.Identity(r) // best effort; missing identity surfaces elsewhere
		if v := c.validateRecord(i, identity, r); v != nil {
			violations = append(violations, *v)
		}
	}

	return Result{Passed: len(violations) == 0, Violations: violations}
}

// validateRecord returns the record's first violation, or nil.
func (c *compiled) validateRecord(index int, identity string, r dataset.Record) *Violation {
	fail := func(field, rule, msg string) *Violation {
		return &Violation{RecordIndex: index, Identity: identity, Field: field, Rule: rule, Message: msg}
	}

	// Required fields, in declaration order for stable reporting.
	for _, name := range c.schema.Required {
		v, ok := r.Fields[name]
		if !ok {
			return fail(name, "required", fmt.Sprintf("required field %q is missing", name))
		}
		if _, isNull := v.(dataset.Null); isNull {
			return fail(name, "required", fmt.Sprintf("required field %q is null", name))
		}
	}

	// Field rules, sorted for stable reporting.
	names := make([]string, 0, len(c.schema.Fields))
	for name := range c.schema.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, ok := r.Fields[name]
		if !ok {
			continue // absence is only a failure when listed in Required
		}
		rule := c.schema.Fields[name]

		if rule.Type != "" && !typeMatches(v, rule.Type) {
			return fail(name, "type", fmt.Sprintf("field %q: expected %s, got %s", name, rule.Type, typeName(v)))
		}
		if re, ok := c.patterns[name]; ok {
			s, isString := v.(dataset.String)
			if !isString {
				return fail(name, "pattern", fmt.Sprintf("field %q: pattern applies to strings, got %s", name, typeName(v)))
			}
			if !re.MatchString(string(s)) {
				return fail(name, "pattern", fmt.Sprintf("field %q: value %q does not match %q", name, string(s), rule.Pattern))
			}
		}
		if rule.Min != nil || rule.Max != nil {
			f, isNumeric := numericValue(v)
			if !isNumeric {
				return fail(name, "range", fmt.Sprintf("field %q: min/max apply to numbers, got %s", name, typeName(v)))
			}
			if rule.Min != nil && f < *rule.Min {
				return fail(name, "range", fmt.Sprintf("field %q: %v is below min %v", name, f, *rule.Min))
			}
			if rule.Max != nil && f > *rule.Max {
				return fail(name, "range", fmt.Sprintf("field %q: %v is above max %v", name, f, *rule.Max))
			}
		}
	}

	return nil
}

func typeMatches(v dataset.Value, want string) bool {
	switch want {
	case "string":
		_, ok := v.(dataset.String)
		return ok
	case "integer":
		_, ok := v.(dataset.Int)
		return ok
	case "number":
		_, ok := numericValue(v)
		return ok
	case "boolean":
		_, ok := v.(dataset.Bool)
		return ok
	case "object":
		_, ok := v.(dataset.Object)
		return ok
	case "array":
		_, ok := v.(dataset.Array)
		return ok
	case "null":
		_, ok := v.(dataset.Null)
		return ok
	default:
		return false
	}
}

func typeName(v dataset.Value) string {
	switch v.(type) {
	case dataset.String:
		return "string"
	case dataset.Int:
		return "integer"
	case dataset.Float:
		return "number"
	case dataset.Bool:
		return "boolean"
	case dataset.Object:
		return "object"
	case dataset.Array:
		return "array"
	case dataset.Null:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func numericValue(v dataset.Value) (float64, bool) {
	switch val := v.(type) {
	case dataset.Int:
		return float64(val), true
	case dataset.Float:
		return float64(val), true
	default:
		return 0, false
	}
}
