package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhomyk/AgenticQA-sub001/internal/checksum"
)

func statsWithCount(n int) checksum.Stats {
	return checksum.Stats{RecordCount: n, MeanRecordSize: 100}
}

func findingFor(findings []Finding, metric string) *Finding {
	for i := range findings {
		if findings[i].Metric == metric {
			return &findings[i]
		}
	}
	return nil
}

func TestDetectNoDrift(t *testing.T) {
	findings := Detect(statsWithCount(100), statsWithCount(100), DefaultThresholds())
	assert.Empty(t, findings)
}

func TestDetectRecordCountWarning(t *testing.T) {
	// 100 -> 160 is a 60% delta: warning, not critical.
	findings := Detect(statsWithCount(100), statsWithCount(160), DefaultThresholds())

	f := findingFor(findings, MetricRecordCount)
	require.NotNil(t, f)
	assert.Equal(t, SeverityWarning, f.Severity)
	assert.InDelta(t, 60.0, f.DeltaPercent, 1e-9)
	assert.False(t, HasCritical(findings))
}

func TestDetectRecordCountCollapseIsCritical(t *testing.T) {
	// 100 -> 10: losing 90% of the records is a 900% symmetric delta.
	findings := Detect(statsWithCount(100), statsWithCount(10), DefaultThresholds())

	f := findingFor(findings, MetricRecordCount)
	require.NotNil(t, f)
	assert.Equal(t, SeverityCritical, f.Severity)
	assert.InDelta(t, 900.0, f.DeltaPercent, 1e-9)
	assert.True(t, HasCritical(findings))
}

func TestDetectWithinThresholdIsSilent(t *testing.T) {
	// 100 -> 140 is a 40% delta: below the 50% warn threshold.
	findings := Detect(statsWithCount(100), statsWithCount(140), DefaultThresholds())
	assert.Nil(t, findingFor(findings, MetricRecordCount))
}

func TestDetectMeanSizeWarning(t *testing.T) {
	base := checksum.Stats{RecordCount: 10, MeanRecordSize: 100}
	cand := checksum.Stats{RecordCount: 10, MeanRecordSize: 180}

	findings := Detect(base, cand, DefaultThresholds())
	f := findingFor(findings, MetricMeanRecordSize)
	require.NotNil(t, f)
	assert.Equal(t, SeverityWarning, f.Severity)
}

func TestDetectNumericFieldMean(t *testing.T) {
	base := checksum.Stats{
		RecordCount:    10,
		MeanRecordSize: 100,
		NumericFields:  map[string]checksum.FieldStats{"qty": {Count: 10, Mean: 5}},
	}
	cand := checksum.Stats{
		RecordCount:    10,
		MeanRecordSize: 100,
		NumericFields:  map[string]checksum.FieldStats{"qty": {Count: 10, Mean: 50}},
	}

	findings := Detect(base, cand, DefaultThresholds())
	f := findingFor(findings, "field_mean:qty")
	require.NotNil(t, f)
	assert.Equal(t, SeverityWarning, f.Severity)
	assert.InDelta(t, 900.0, f.DeltaPercent, 1e-9)
}

func TestDetectDeterminism(t *testing.T) {
	base := statsWithCount(100)
	cand := statsWithCount(10)

	first := Detect(base, cand, DefaultThresholds())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Detect(base, cand, DefaultThresholds()))
	}
}

func TestDetectZeroToNonZeroIsCapped(t *testing.T) {
	findings := Detect(statsWithCount(0), statsWithCount(5), DefaultThresholds())
	f := findingFor(findings, MetricRecordCount)
	require.NotNil(t, f)
	assert.Equal(t, SeverityCritical, f.Severity)
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())

	bad := DefaultThresholds()
	bad.RecordCountWarn = -1
	assert.Error(t, bad.Validate())

	inverted := DefaultThresholds()
	inverted.RecordCountCritical = 0.1
	assert.Error(t, inverted.Validate())
}

func TestThresholdOverrides(t *testing.T) {
	th := Thresholds{RecordCountWarn: 0.1, RecordCountCritical: 0.2, MeanSizeWarn: 0, FieldMeanWarn: 0}

	findings := Detect(statsWithCount(100), statsWithCount(115), th)
	f := findingFor(findings, MetricRecordCount)
	require.NotNil(t, f)
	assert.Equal(t, SeverityWarning, f.Severity)

	findings = Detect(statsWithCount(100), statsWithCount(130), th)
	f = findingFor(findings, MetricRecordCount)
	require.NotNil(t, f)
	assert.Equal(t, SeverityCritical, f.Severity)
}
