package harness

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
)

// maxReportedFailures bounds how many offending records one check names
// in its message.
const maxReportedFailures = 5

// Format shapes recognized by the Format check.
type Format string

const (
	FormatIdentifier Format = "identifier"
	FormatTimestamp  Format = "timestamp"
	FormatEmail      Format = "email"
)

var (
	identifierRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	emailRe      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Completeness checks that every record carries all the given fields with
// non-null values.
func Completeness(fields ...string) CheckFunc {
	return func(_ context.Context, ds dataset.Dataset) error {
		var failures []string
		for i, r := range ds.Records {
			for _, f := range fields {
				v, ok := r.Fields[f]
				if !ok {
					failures = append(failures, fmt.Sprintf("record %d missing %q", i, f))
					continue
				}
				if _, isNull := v.(dataset.Null); isNull {
					failures = append(failures, fmt.Sprintf("record %d has null %q", i, f))
				}
			}
		}
		return summarize("completeness", failures)
	}
}

// CheckFormat checks that every present, non-null value of the field
// matches the given shape. Absent fields are Completeness's concern.
func CheckFormat(field string, format Format) CheckFunc {
	return func(_ context.Context, ds dataset.Dataset) error {
		var failures []string
		for i, r := range ds.Records {
			v, ok := r.Fields[field]
			if !ok {
				continue
			}
			if _, isNull := v.(dataset.Null); isNull {
				continue
			}
			s, ok := v.(dataset.String)
			if !ok {
				failures = append(failures, fmt.Sprintf("record %d: %q is not a string", i, field))
				continue
			}
			if !matchesFormat(string(s), format) {
				failures = append(failures, fmt.Sprintf("record %d: %q = %q is not a valid %s", i, field, string(s), format))
			}
		}
		return summarize("format", failures)
	}
}

func matchesFormat(s string, format Format) bool {
	switch format {
	case FormatIdentifier:
		return identifierRe.MatchString(s)
	case FormatTimestamp:
		_, err := time.Parse(time.RFC3339, s)
		return err == nil
	case FormatEmail:
		return emailRe.MatchString(s)
	default:
		return false
	}
}

// Enum checks that every present value of the field is one of the allowed
// scalar strings.
func Enum(field string, allowed ...string) CheckFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(_ context.Context, ds dataset.Dataset) error {
		var failures []string
		for i, r := range ds.Records {
			v, ok := r.Fields[field]
			if !ok {
				continue
			}
			s, ok := v.(dataset.String)
			if !ok {
				failures = append(failures, fmt.Sprintf("record %d: %q is not a string", i, field))
				continue
			}
			if _, ok := set[string(s)]; !ok {
				failures = append(failures, fmt.Sprintf("record %d: %q = %q not in %v", i, field, string(s), allowed))
			}
		}
		return summarize("enum", failures)
	}
}

// Relationship checks that every present value of the field resolves to
// an identity within the dataset under test.
func Relationship(field string) CheckFunc {
	return func(_ context.Context, ds dataset.Dataset) error {
		index, err := ds.Index()
		if err != nil {
			return fmt.Errorf("relationship: %w", err)
		}
		return checkReferences(ds, field, func(id string) bool {
			_, ok := index[id]
			return ok
		})
	}
}

// RelationshipAcross checks that every present value of the field
// resolves to an identity of a related dataset.
func RelationshipAcross(field string, related dataset.Dataset) CheckFunc {
	return func(_ context.Context, ds dataset.Dataset) error {
		index, err := related.Index()
		if err != nil {
			return fmt.Errorf("relationship: related dataset: %w", err)
		}
		return checkReferences(ds, field, func(id string) bool {
			_, ok := index[id]
			return ok
		})
	}
}

func checkReferences(ds dataset.Dataset, field string, resolves func(string) bool) error {
	var failures []string
	for i, r := range ds.Records {
		v, ok := r.Fields[field]
		if !ok {
			continue
		}
		if _, isNull := v.(dataset.Null); isNull {
			continue
		}
		ref := fmt.Sprintf("%v", dataset.ToAny(v))
		if !resolves(ref) {
			failures = append(failures, fmt.Sprintf("record %d: %q = %q does not resolve", i, field, ref))
		}
	}
	return summarize("relationship", failures)
}

// BusinessRule applies a caller-supplied predicate to every record.
// The predicate returns nil for a conforming record.
func BusinessRule(rule func(r dataset.Record) error) CheckFunc {
	return func(_ context.Context, ds dataset.Dataset) error {
		var failures []string
		for i, r := range ds.Records {
			if err := rule(r); err != nil {
				failures = append(failures, fmt.Sprintf("record %d: %v", i, err))
			}
		}
		return summarize("business rule", failures)
	}
}

// Consistency applies a caller-supplied cross-record invariant to the
// whole dataset.
func Consistency(invariant func(ds dataset.Dataset) error) CheckFunc {
	return func(_ context.Context, ds dataset.Dataset) error {
		if err := invariant(ds); err != nil {
			return fmt.Errorf("consistency: %w", err)
		}
		return nil
	}
}

// Monotonic checks that the numeric field never decreases in record
// order. Records without the field are skipped.
func Monotonic(field string) CheckFunc {
	return Consistency(func(ds dataset.Dataset) error {
		have := false
		var prev float64
		var prevIdx int
		for i, r := range ds.Records {
			v, ok := r.Fields[field]
			if !ok {
				continue
			}
			f, ok := numericValue(v)
			if !ok {
				return fmt.Errorf("record %d: %q is not numeric", i, field)
			}
			if have && f < prev {
				return fmt.Errorf("record %d: %q = %v decreases below record %d's %v", i, field, f, prevIdx, prev)
			}
			prev, prevIdx, have = f, i, true
		}
		return nil
	})
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

// summarize folds per-record failures into one error, naming at most
// maxReportedFailures offenders. Failures arrive in record order, which
// keeps messages deterministic.
func summarize(kind string, failures []string) error {
	if len(failures) == 0 {
		return nil
	}
	shown := failures
	suffix := ""
	if len(shown) > maxReportedFailures {
		suffix = fmt.Sprintf(" (and %d more)", len(shown)-maxReportedFailures)
		shown = shown[:maxReportedFailures]
	}
	return fmt.Errorf("%s: %s%s", kind, strings.Join(shown, "; "), suffix)
}
