package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
	"github.com/nhomyk/AgenticQA-sub001/internal/testutil"
)

func indexOf(t *testing.T, records ...dataset.Record) map[string]dataset.Record {
	t.Helper()
	index, err := testutil.NewDataset(records...).Index()
	require.NoError(t, err)
	return index
}

func TestRecordsIdempotence(t *testing.T) {
	a := indexOf(t,
		testutil.NewRecord(1, dataset.Object{"name": dataset.String("alpha")}),
		testutil.NewRecord(2, dataset.Object{"name": dataset.String("beta"), "nested": dataset.Object{"x": dataset.Int(1)}}),
	)

	report := Records(a, a)
	assert.True(t, report.Empty())
	assert.Empty(t, report.Added)
	assert.Empty(t, report.Removed)
	assert.Empty(t, report.Changed)
}

func TestRecordsAddedRemoved(t *testing.T) {
	before := indexOf(t,
		testutil.NewRecord(1, nil),
		testutil.NewRecord(2, nil),
	)
	after := indexOf(t,
		testutil.NewRecord(2, nil),
		testutil.NewRecord(3, nil),
	)

	report := Records(before, after)
	assert.Equal(t, []string{"3"}, report.Added)
	assert.Equal(t, []string{"1"}, report.Removed)
	assert.Empty(t, report.Changed)
}

func TestRecordsFieldDiffsAreLeafPaths(t *testing.T) {
	before := indexOf(t, testutil.NewRecord(1, dataset.Object{
		"name": dataset.String("alpha"),
		"spec": dataset.Object{
			"cpu": dataset.Int(2),
			"mem": dataset.Int(4),
		},
		"tags": dataset.Array{dataset.String("a"), dataset.String("b")},
	}))
	after := indexOf(t, testutil.NewRecord(1, dataset.Object{
		"name": dataset.String("alpha"),
		"spec": dataset.Object{
			"cpu": dataset.Int(8), // changed
			"mem": dataset.Int(4),
		},
		"tags": dataset.Array{dataset.String("a"), dataset.String("c")}, // [1] changed
	}))

	report := Records(before, after)
	require.Len(t, report.Changed, 1)
	diff := report.Changed[0]
	assert.Equal(t, "1", diff.Identity)
	require.Len(t, diff.FieldDiffs, 2, "only differing leaves are recorded")

	paths := []string{diff.FieldDiffs[0].Path, diff.FieldDiffs[1].Path}
	assert.Contains(t, paths, "spec.cpu")
	assert.Contains(t, paths, "tags[1]")
}

func TestRecordsMissingFieldIsLeafDiff(t *testing.T) {
	before := indexOf(t, testutil.NewRecord(1, dataset.Object{"a": dataset.Int(1), "b": dataset.Int(2)}))
	after := indexOf(t, testutil.NewRecord(1, dataset.Object{"a": dataset.Int(1), "c": dataset.Int(3)}))

	report := Records(before, after)
	require.Len(t, report.Changed, 1)
	require.Len(t, report.Changed[0].FieldDiffs, 2)

	byPath := map[string]FieldDiff{}
	for _, d := range report.Changed[0].FieldDiffs {
		byPath[d.Path] = d
	}
	assert.Equal(t, int64(2), byPath["b"].Before)
	assert.Nil(t, byPath["b"].After)
	assert.Nil(t, byPath["c"].Before)
	assert.Equal(t, int64(3), byPath["c"].After)
}

func TestRecordsNumericNormalization(t *testing.T) {
	before := indexOf(t, testutil.NewRecord(1, dataset.Object{"qty": dataset.Int(2)}))
	after := indexOf(t, testutil.NewRecord(1, dataset.Object{"qty": dataset.Float(2.0)}))

	report := Records(before, after)
	assert.True(t, report.Empty(), "2 and 2.0 are the same value")
}

func TestChecksums(t *testing.T) {
	before := map[string]string{"1": "aaa", "2": "bbb", "3": "ccc"}
	after := map[string]string{"1": "aaa", "2": "BBB", "4": "ddd"}

	report := Checksums(before, after)
	assert.Equal(t, []string{"4"}, report.Added)
	assert.Equal(t, []string{"3"}, report.Removed)
	require.Len(t, report.Changed, 1)
	assert.Equal(t, "2", report.Changed[0].Identity)
	assert.Empty(t, report.Changed[0].FieldDiffs, "baseline comparison has no record content")
}
