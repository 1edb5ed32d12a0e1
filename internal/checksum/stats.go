package checksum

import (
	"fmt"
	"math"

	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
)

// Stats are the dataset statistics consumed by drift detection.
// All values derive from pure arithmetic over the dataset, so two
// computations over the same dataset always agree.
type Stats struct {
	RecordCount    int                   `json:"record_count"`
	MeanRecordSize float64               `json:"mean_record_size"`
	NumericFields  map[string]FieldStats `json:"numeric_fields,omitempty"`
}

// FieldStats summarizes one top-level numeric field across all records
// that carry it.
type FieldStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// ComputeStats derives Stats from a dataset. Record size is the length of
// the canonical serialization, so the metric is stable across field order
// and number spelling.
func ComputeStats(ds dataset.Dataset) (Stats, error) {
	stats := Stats{RecordCount: len(ds.Records)}
	if len(ds.Records) == 0 {
		return stats, nil
	}

	totalSize := 0
	sums := make(map[string]float64)
	sumSquares := make(map[string]float64)
	counts := make(map[string]int)

	for i, r := range ds.Records {
		canonical, err := dataset.MarshalCanonical(r.Fields)
		if err != nil {
			return Stats{}, fmt.Errorf("record %d: %w", i, err)
		}
		totalSize += len(canonical)

		for name, v := range r.Fields {
			f, ok := numericValue(v)
			if !ok {
				continue
			}
			sums[name] += f
			sumSquares[name] += f * f
			counts[name]++
		}
	}

	stats.MeanRecordSize = float64(totalSize) / float64(len(ds.Records))

	if len(counts) > 0 {
		stats.NumericFields = make(map[string]FieldStats, len(counts))
		for name, n := range counts {
			mean := sums[name] / float64(n)
			variance := sumSquares[name]/float64(n) - mean*mean
			if variance < 0 {
				variance = 0 // guard against rounding
			}
			stats.NumericFields[name] = FieldStats{
				Count:  n,
				Mean:   mean,
				StdDev: math.Sqrt(variance),
			}
		}
	}

	return stats, nil
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
