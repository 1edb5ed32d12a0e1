package dataset

import (
	"fmt"
	"strconv"
	"time"
)

// Record is one structured row of a Dataset.
type Record struct {
	Fields Object `json:"fields"`
}

// Dataset is an ordered sequence of records plus capture metadata.
// A dataset is treated as immutable once digested; a changed dataset is a
// new value, never an in-place mutation.
type Dataset struct {
	Source        string    `json:"source"`
	CapturedAt    time.Time `json:"captured_at"`
	IdentityField string    `json:"identity_field"`
	Records       []Record  `json:"records"`
}

// DuplicateIdentityError reports two records sharing one identity value.
type DuplicateIdentityError struct {
	Identity string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("duplicate identity %q: identity-field values must be unique within a dataset", e.Identity)
}

// Identity extracts the record's identity value as a string.
// The identity field must be present and scalar.
func (d Dataset) Identity(r Record) (string, error) {
	if d.IdentityField == "" {
		return "", fmt.Errorf("dataset has no identity field declared")
	}
	v, ok := r.Fields[d.IdentityField]
	if !ok {
		return "", fmt.Errorf("record is missing identity field %q", d.IdentityField)
	}
	return scalarString(v)
}

// Index returns records keyed by identity value.
// Fails on a missing identity field or a duplicate identity.
func (d Dataset) Index() (map[string]Record, error) {
	index := make(map[string]Record, len(d.Records))
	for i, r := range d.Records {
		id, err := d.Identity(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if _, exists := index[id]; exists {
			return nil, &DuplicateIdentityError{Identity: id}
		}
		index[id] = r
	}
	return index, nil
}

// Identities returns the identity values in record order.
// Unlike Index, duplicates are preserved; callers that need the uniqueness
// guarantee use Index.
func (d Dataset) Identities() ([]string, error) {
	ids := make([]string, len(d.Records))
	for i, r := range d.Records {
		id, err := d.Identity(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// scalarString renders a scalar value as a stable string key.
func scalarString(v Value) (string, error) {
	switch val := normalize(v).(type) {
	case String:
		return string(val), nil
	case Int:
		return strconv.FormatInt(int64(val), 10), nil
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64), nil
	case Bool:
		return strconv.FormatBool(bool(val)), nil
	case Null:
		return "", fmt.Errorf("identity value must not be null")
	default:
		return "", fmt.Errorf("identity value must be scalar, got %T", v)
	}
}
