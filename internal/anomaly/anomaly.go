// Package anomaly detects statistical drift between a baseline dataset
// and a candidate. Detection is pure arithmetic over two stats snapshots:
// no randomness, so findings are fully reproducible.
package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/nhomyk/AgenticQA-sub001/internal/checksum"
)

// Severity classifies how far a metric drifted relative to its threshold.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// maxDelta caps the drift fraction for zero-to-nonzero transitions.
const maxDelta = 1e9

// Metric names used in findings.
const (
	MetricRecordCount    = "record_count"
	MetricMeanRecordSize = "mean_record_size"
	metricFieldMeanFmt   = "field_mean:%s"
)

// Finding is one metric that drifted past a threshold.
type Finding struct {
	Metric         string   `json:"metric"`
	BaselineValue  float64  `json:"baseline_value"`
	CandidateValue float64  `json:"candidate_value"`
	DeltaPercent   float64  `json:"delta_percent"`
	Threshold      float64  `json:"threshold"`
	Severity       Severity `json:"severity"`
}

// Thresholds configure drift limits, each a fraction of the smaller side
// (0.5 = 50%). A zero critical threshold disables critical escalation for
// that metric.
type Thresholds struct {
	RecordCountWarn     float64 `yaml:"record_count_warn" validate:"gte=0"`
	RecordCountCritical float64 `yaml:"record_count_critical" validate:"gte=0"`
	MeanSizeWarn        float64 `yaml:"mean_size_warn" validate:"gte=0"`
	FieldMeanWarn       float64 `yaml:"field_mean_warn" validate:"gte=0"`
}

// DefaultThresholds returns the stock limits: record count drift beyond
// 50% warns and beyond 100% is critical; mean record size and numeric
// field means warn beyond 50%.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RecordCountWarn:     0.5,
		RecordCountCritical: 1.0,
		MeanSizeWarn:        0.5,
		FieldMeanWarn:       0.5,
	}
}

var structValidate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the thresholds are well formed.
func (t Thresholds) Validate() error {
	if err := structValidate.Struct(t); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	if t.RecordCountCritical > 0 && t.RecordCountCritical < t.RecordCountWarn {
		return fmt.Errorf("invalid thresholds: record count critical %v below warn %v",
			t.RecordCountCritical, t.RecordCountWarn)
	}
	return nil
}

// Detect compares candidate statistics against baseline statistics and
// returns one finding per drifted metric, sorted by metric name.
//
// Drift is the symmetric relative delta |candidate-baseline| / min(both):
// a collapse from 100 records to 10 scores 900%, the same magnitude as
// growing 10 to 100. A plain relative-to-baseline delta would rate large
// shrinkage as mild, which is exactly the dangerous direction.
func Detect(baseline, candidate checksum.Stats, th Thresholds) []Finding {
	var findings []Finding

	if f := assess(MetricRecordCount,
		float64(baseline.RecordCount), float64(candidate.RecordCount),
		th.RecordCountWarn, th.RecordCountCritical); f != nil {
		findings = append(findings, *f)
	}

	if f := assess(MetricMeanRecordSize,
		baseline.MeanRecordSize, candidate.MeanRecordSize,
		th.MeanSizeWarn, 0); f != nil {
		findings = append(findings, *f)
	}

	if th.FieldMeanWarn > 0 {
		for name, base := range baseline.NumericFields {
			cand, ok := candidate.NumericFields[name]
			if !ok {
				continue // field disappeared; record-level checks own that
			}
			metric := fmt.Sprintf(metricFieldMeanFmt, name)
			if f := assess(metric, base.Mean, cand.Mean, th.FieldMeanWarn, 0); f != nil {
				findings = append(findings, *f)
			}
		}
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].Metric < findings[j].Metric })
	return findings
}

// HasCritical reports whether any finding is critical. A critical finding
// forces the phase to fail; warnings are reported but non-blocking.
func HasCritical(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// assess evaluates one metric pair against warn/critical fractions.
// Returns nil when the drift stays inside the warn threshold.
func assess(metric string, base, cand, warn, critical float64) *Finding {
	delta := symmetricDelta(base, cand)

	f := &Finding{
		Metric:         metric,
		BaselineValue:  base,
		CandidateValue: cand,
		DeltaPercent:   delta * 100,
	}

	switch {
	case critical > 0 && delta > critical:
		f.Threshold = critical * 100
		f.Severity = SeverityCritical
	case warn > 0 && delta > warn:
		f.Threshold = warn * 100
		f.Severity = SeverityWarning
	default:
		return nil
	}
	return f
}

// symmetricDelta returns |cand-base| / min(|base|, |cand|).
// Equal values (including both zero) have zero drift; a transition
// between zero and non-zero cannot be expressed as a ratio and maps to
// an arbitrarily large drift.
func symmetricDelta(base, cand float64) float64 {
	if base == cand {
		return 0
	}
	lo := math.Abs(base)
	hi := math.Abs(cand)
	if hi < lo {
		lo, hi = hi, lo
	}
	if lo == 0 {
		// 0 -> n or n -> 0: unbounded relative drift, capped to stay
		// JSON-representable.
		return maxDelta
	}
	return math.Abs(cand-base) / lo
}
