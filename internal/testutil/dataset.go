package testutil

import (
	"fmt"
	"time"

	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
)

// NewDataset builds a dataset keyed by "id" from the given records.
func NewDataset(records ...dataset.Record) dataset.Dataset {
	return dataset.Dataset{
		Source:        "testutil",
		CapturedAt:    time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC),
		IdentityField: "id",
		Records:       records,
	}
}

// NewRecord builds a record with an integer id plus the given fields.
func NewRecord(id int64, fields dataset.Object) dataset.Record {
	merged := dataset.Object{"id": dataset.Int(id)}
	for k, v := range fields {
		merged[k] = v
	}
	return dataset.Record{Fields: merged}
}

// GenerateRecords builds n uniform records with ids 1..n, useful for
// record-count drift scenarios.
func GenerateRecords(n int) []dataset.Record {
	records := make([]dataset.Record, n)
	for i := 0; i < n; i++ {
		records[i] = NewRecord(int64(i+1), dataset.Object{
			"name": dataset.String(fmt.Sprintf("record-%d", i+1)),
			"qty":  dataset.Int(int64(i + 1)),
		})
	}
	return records
}
