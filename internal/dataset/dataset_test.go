package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset(records ...Record) Dataset {
	return Dataset{
		Source:        "unit-test",
		IdentityField: "id",
		Records:       records,
	}
}

func TestIndexKeysByIdentity(t *testing.T) {
	ds := testDataset(
		Record{Fields: Object{"id": Int(1), "name": String("a")}},
		Record{Fields: Object{"id": Int(2), "name": String("b")}},
	)

	index, err := ds.Index()
	require.NoError(t, err)
	require.Len(t, index, 2)
	assert.Equal(t, String("a"), index["1"].Fields["name"])
	assert.Equal(t, String("b"), index["2"].Fields["name"])
}

func TestIndexRejectsDuplicateIdentity(t *testing.T) {
	ds := testDataset(
		Record{Fields: Object{"id": String("x")}},
		Record{Fields: Object{"id": String("x")}},
	)

	_, err := ds.Index()
	require.Error(t, err)

	var dup *DuplicateIdentityError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "x", dup.Identity)
}

func TestIdentityRequiresScalar(t *testing.T) {
	ds := testDataset(Record{Fields: Object{"id": Object{"nested": Int(1)}}})
	_, err := ds.Index()
	assert.Error(t, err)

	ds = testDataset(Record{Fields: Object{"other": Int(1)}})
	_, err = ds.Index()
	assert.Error(t, err)
}

func TestIdentityNumericNormalization(t *testing.T) {
	// 2 and 2.0 must key identically across YAML/JSON front ends.
	ds := testDataset(Record{Fields: Object{"id": Float(2.0)}})
	id, err := ds.Identity(ds.Records[0])
	require.NoError(t, err)
	assert.Equal(t, "2", id)
}

func TestFromAnyRoundTrip(t *testing.T) {
	raw := map[string]any{
		"id":    1,
		"score": 2.5,
		"tags":  []any{"a", "b"},
		"meta":  map[string]any{"ok": true, "note": nil},
	}

	obj, err := ObjectFromAny(raw)
	require.NoError(t, err)
	assert.Equal(t, Int(1), obj["id"])
	assert.Equal(t, Float(2.5), obj["score"])
	assert.Equal(t, Array{String("a"), String("b")}, obj["tags"])
	assert.Equal(t, Object{"ok": Bool(true), "note": Null{}}, obj["meta"])

	back := ToAny(obj)
	m, ok := back.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(1), m["id"])
}
