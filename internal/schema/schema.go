// Package schema provides structural validation of datasets against a
// declared schema: value types, required fields, regex patterns, and
// numeric bounds. Validation is a pure function over the dataset.
package schema

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Schema declares the expected shape of every record in a dataset.
type Schema struct {
	// Type of the dataset payload. For "array" (the default) the field
	// rules apply to each record.
	Type string `yaml:"type" json:"type" validate:"omitempty,oneof=object array"`

	// Required lists field names that must be present on every record.
	Required []string `yaml:"required" json:"required"`

	// Fields maps field names to per-field constraints.
	Fields map[string]FieldRule `yaml:"fields" json:"fields" validate:"dive"`
}

// FieldRule constrains one field.
type FieldRule struct {
	Type    string   `yaml:"type" json:"type" validate:"omitempty,oneof=string number integer boolean object array null"`
	Pattern string   `yaml:"pattern" json:"pattern,omitempty"`
	Min     *float64 `yaml:"min" json:"min,omitempty"`
	Max     *float64 `yaml:"max" json:"max,omitempty"`
}

// structValidate checks schema declarations themselves.
var structValidate = validator.New(validator.WithRequiredStructEnabled())

// compiled is a schema with its patterns pre-compiled.
type compiled struct {
	schema   Schema
	patterns map[string]*regexp.Regexp
}

// compile validates the schema declaration and compiles its patterns.
// A malformed schema yields one error here and never reaches per-record
// validation.
func compile(s *Schema) (*compiled, error) {
	if s == nil {
		return nil, fmt.Errorf("schema is missing")
	}
	if err := structValidate.Struct(s); err != nil {
		return nil, fmt.Errorf("invalid schema declaration: %w", err)
	}

	c := &compiled{schema: *s, patterns: make(map[string]*regexp.Regexp)}
	for name, rule := range s.Fields {
		if rule.Min != nil && rule.Max != nil && *rule.Min > *rule.Max {
			return nil, fmt.Errorf("field %q: min %v exceeds max %v", name, *rule.Min, *rule.Max)
		}
		if rule.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("field %q: invalid pattern: %w", name, err)
		}
		c.patterns[name] = re
	}
	return c, nil
}
