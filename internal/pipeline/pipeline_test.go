package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhomyk/AgenticQA-sub001/internal/audit"
	"github.com/nhomyk/AgenticQA-sub001/internal/checksum"
	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
	"github.com/nhomyk/AgenticQA-sub001/internal/harness"
	"github.com/nhomyk/AgenticQA-sub001/internal/schema"
	"github.com/nhomyk/AgenticQA-sub001/internal/store"
	"github.com/nhomyk/AgenticQA-sub001/internal/testutil"
)

func testPipeline(t *testing.T, cfg Config) (*Pipeline, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewFrozenClock(time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC))
	p, err := New(st, cfg, zerolog.Nop(), WithClock(clock.Now))
	require.NoError(t, err)
	return p, st
}

// mutate returns a copy of ds with the given record's field replaced.
func mutate(ds dataset.Dataset, index int, field string, v dataset.Value) dataset.Dataset {
	records := make([]dataset.Record, len(ds.Records))
	for i, r := range ds.Records {
		fields := make(dataset.Object, len(r.Fields))
		for k, val := range r.Fields {
			fields[k] = val
		}
		if i == index {
			fields[field] = v
		}
		records[i] = dataset.Record{Fields: fields}
	}
	out := ds
	out.Records = records
	return out
}

func TestScenarioCleanPass(t *testing.T) {
	p, _ := testPipeline(t, Config{Actor: "deployer"})
	ctx := context.Background()
	ds := testutil.NewDataset(testutil.GenerateRecords(3)...)

	outcome, err := p.Run(ctx, ds, checksum.NewScope("2"), func(_ context.Context, d dataset.Dataset) (dataset.Dataset, error) {
		return mutate(d, 1, "name", dataset.String("renamed-2")), nil
	})
	require.NoError(t, err)

	assert.True(t, outcome.Pre.Result.Passed)
	assert.Equal(t, StateReady, outcome.Pre.State)

	require.NotNil(t, outcome.Post)
	post := *outcome.Post
	assert.True(t, post.Result.Passed)
	assert.Equal(t, StateCompleted, post.State)
	assert.False(t, post.RollbackTriggered)

	require.NotNil(t, post.Reconciliation)
	assert.Empty(t, post.Reconciliation.Added)
	assert.Empty(t, post.Reconciliation.Removed)
	require.Len(t, post.Reconciliation.Changed, 1)
	assert.Equal(t, "2", post.Reconciliation.Changed[0].Identity)

	assert.Equal(t, StateCompleted, p.State())
}

func TestScenarioOutOfScopeMutation(t *testing.T) {
	p, _ := testPipeline(t, Config{Actor: "deployer"})
	ctx := context.Background()
	ds := testutil.NewDataset(testutil.GenerateRecords(3)...)

	outcome, err := p.Run(ctx, ds, checksum.NewScope("2"), func(_ context.Context, d dataset.Dataset) (dataset.Dataset, error) {
		d = mutate(d, 1, "name", dataset.String("renamed-2"))
		return mutate(d, 0, "name", dataset.String("sneaky")), nil
	})
	require.NoError(t, err)

	require.NotNil(t, outcome.Post)
	post := *outcome.Post
	assert.False(t, post.Result.Passed)
	assert.True(t, post.RollbackTriggered)
	assert.Equal(t, StateRolledBack, post.State)

	require.NotEmpty(t, post.Result.Errors)
	assert.Equal(t, ErrCodeScopeViolation, post.Result.Errors[0].Code)
	assert.Contains(t, post.Result.Errors[0].Message, `1`)
}

func TestScenarioRecordCountCollapse(t *testing.T) {
	records := testutil.GenerateRecords(100)
	ds := testutil.NewDataset(records...)
	ids, err := ds.Identities()
	require.NoError(t, err)

	p, _ := testPipeline(t, Config{Actor: "deployer"})
	ctx := context.Background()

	// Every removal is in scope, so the drop survives the scope check and
	// reaches drift detection.
	outcome, err := p.Run(ctx, ds, checksum.NewScope(ids...), func(_ context.Context, d dataset.Dataset) (dataset.Dataset, error) {
		return testutil.NewDataset(records[:10]...), nil
	})
	require.NoError(t, err)

	require.NotNil(t, outcome.Post)
	post := *outcome.Post
	assert.True(t, post.RollbackTriggered)
	assert.Equal(t, StateRolledBack, post.State)

	require.NotEmpty(t, post.Result.Errors)
	assert.Equal(t, ErrCodeAnomalyCritical, post.Result.Errors[0].Code)
	require.NotEmpty(t, post.Anomalies)
}

func TestScenarioTamperedChainForcesRollback(t *testing.T) {
	p, st := testPipeline(t, Config{Actor: "deployer", ChainID: "session-1"})
	ctx := context.Background()
	ds := testutil.NewDataset(testutil.GenerateRecords(3)...)

	pre, err := p.RunPre(ctx, ds, checksum.NewScope())
	require.NoError(t, err)
	require.True(t, pre.Result.Passed)

	// History is altered between the phases.
	require.NoError(t, st.Exec(ctx,
		`UPDATE audit_entries SET findings = ? WHERE chain_id = ? AND seq = ?`,
		`["forged"]`, "session-1", 0))

	post, err := p.RunPost(ctx, ds)
	require.NoError(t, err)
	assert.True(t, post.RollbackTriggered)
	assert.Equal(t, StateRolledBack, post.State)

	require.NotEmpty(t, post.Result.Errors)
	assert.Equal(t, ErrCodeAuditTamper, post.Result.Errors[0].Code)
	assert.Contains(t, post.Result.Errors[0].Message, "entry 0")
}

func TestEmptyScopeAnyChangeRollsBack(t *testing.T) {
	p, _ := testPipeline(t, Config{Actor: "deployer"})
	ctx := context.Background()
	ds := testutil.NewDataset(testutil.GenerateRecords(2)...)

	outcome, err := p.Run(ctx, ds, checksum.NewScope(), func(_ context.Context, d dataset.Dataset) (dataset.Dataset, error) {
		return mutate(d, 0, "qty", dataset.Int(999)), nil
	})
	require.NoError(t, err)

	require.NotNil(t, outcome.Post)
	assert.True(t, outcome.Post.RollbackTriggered)
	assert.True(t, IsCode(&outcome.Post.Result.Errors[0], ErrCodeScopeViolation))
}

func TestPreSchemaFailureAborts(t *testing.T) {
	s := &schema.Schema{
		Type:     "array",
		Required: []string{"id", "name"},
	}
	p, _ := testPipeline(t, Config{Actor: "deployer", Schema: s, ChainID: "audited"})
	ctx := context.Background()

	ds := testutil.NewDataset(testutil.NewRecord(1, nil)) // no name field
	report, err := p.RunPre(ctx, ds, checksum.NewScope())
	require.NoError(t, err)

	assert.False(t, report.Result.Passed)
	assert.Equal(t, StateAborted, report.State)
	require.NotEmpty(t, report.Result.Errors)
	assert.Equal(t, ErrCodeSchemaViolation, report.Result.Errors[0].Code)

	// The aborted phase still appended exactly one audit entry.
	assert.Equal(t, int64(0), report.AuditSequence)

	// A blocked pipeline refuses the post phase.
	_, err = p.RunPost(ctx, ds)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeInvalidState))
}

func TestPreDuplicateIdentityAborts(t *testing.T) {
	p, _ := testPipeline(t, Config{Actor: "deployer"})
	ds := testutil.NewDataset(testutil.NewRecord(1, nil), testutil.NewRecord(1, nil))

	report, err := p.RunPre(context.Background(), ds, checksum.NewScope())
	require.NoError(t, err)
	assert.Equal(t, StateAborted, report.State)
	require.NotEmpty(t, report.Result.Errors)
	assert.Equal(t, ErrCodeDuplicateIdentity, report.Result.Errors[0].Code)
}

func TestPreUnhashableValueAborts(t *testing.T) {
	p, _ := testPipeline(t, Config{Actor: "deployer"})
	ds := testutil.NewDataset(
		testutil.NewRecord(1, dataset.Object{"ratio": dataset.Float(math.NaN())}),
	)

	report, err := p.RunPre(context.Background(), ds, checksum.NewScope())
	require.NoError(t, err)
	assert.Equal(t, StateAborted, report.State)
	require.NotEmpty(t, report.Result.Errors)
	assert.Equal(t, ErrCodeChecksumFailure, report.Result.Errors[0].Code)
	assert.Contains(t, report.Result.Errors[0].Message, "digest")
}

func TestPreCompletenessFailureAborts(t *testing.T) {
	p, _ := testPipeline(t, Config{Actor: "deployer", RequiredFields: []string{"name"}})
	ds := testutil.NewDataset(testutil.NewRecord(1, nil))

	report, err := p.RunPre(context.Background(), ds, checksum.NewScope())
	require.NoError(t, err)
	assert.Equal(t, StateAborted, report.State)
	assert.Equal(t, ErrCodeCompleteness, report.Result.Errors[0].Code)
}

func TestRequiredCheckFailureIsHard(t *testing.T) {
	suite := harness.NewSuite().RegisterRequired("never-passes", func(context.Context, dataset.Dataset) error {
		return errors.New("nope")
	})
	p, _ := testPipeline(t, Config{Actor: "deployer", Suite: suite})

	report, err := p.RunPre(context.Background(), testutil.NewDataset(), checksum.NewScope())
	require.NoError(t, err)
	assert.Equal(t, StateAborted, report.State)
	assert.Equal(t, ErrCodeTestFailure, report.Result.Errors[0].Code)
	require.NotNil(t, report.Tests)
	assert.Equal(t, 1, report.Tests.Failed)
}

func TestOptionalCheckFailureIsSoft(t *testing.T) {
	suite := harness.NewSuite().Register("flaky", func(context.Context, dataset.Dataset) error {
		return errors.New("drift")
	})
	p, _ := testPipeline(t, Config{Actor: "deployer", Suite: suite})

	report, err := p.RunPre(context.Background(), testutil.NewDataset(testutil.GenerateRecords(1)...), checksum.NewScope())
	require.NoError(t, err)
	assert.True(t, report.Result.Passed)
	assert.Equal(t, StateReady, report.State)
	require.Len(t, report.Result.Warnings, 1)
	assert.Contains(t, report.Result.Warnings[0], "flaky")
	assert.Equal(t, int64(10), report.Result.RiskScore)
}

func TestBaselineCaptureAndComparison(t *testing.T) {
	p, _ := testPipeline(t, Config{
		Actor:          "deployer",
		BaselineName:   "inventory",
		CreateBaseline: true,
	})
	ctx := context.Background()
	ds := testutil.NewDataset(testutil.GenerateRecords(3)...)

	outcome, err := p.Run(ctx, ds, checksum.NewScope(), func(_ context.Context, d dataset.Dataset) (dataset.Dataset, error) {
		return d, nil
	})
	require.NoError(t, err)

	require.NotNil(t, outcome.Post)
	require.NotNil(t, outcome.Post.BaselineComparison)
	assert.True(t, outcome.Post.BaselineComparison.Empty())
	assert.Equal(t, StateCompleted, outcome.Post.State)
}

func TestMissingBaselineIsAWarning(t *testing.T) {
	p, _ := testPipeline(t, Config{Actor: "deployer", BaselineName: "never-created"})
	ctx := context.Background()
	ds := testutil.NewDataset(testutil.GenerateRecords(2)...)

	outcome, err := p.Run(ctx, ds, checksum.NewScope(), func(_ context.Context, d dataset.Dataset) (dataset.Dataset, error) {
		return d, nil
	})
	require.NoError(t, err)

	require.NotNil(t, outcome.Post)
	assert.Equal(t, StateCompleted, outcome.Post.State)
	assert.True(t, outcome.Post.Result.Passed)
	require.NotEmpty(t, outcome.Post.Result.Warnings)
	assert.Contains(t, outcome.Post.Result.Warnings[0], "never-created")
}

// slowSuite holds the phase past its deadline so timeout handling is
// exercised deterministically.
func slowSuite(d time.Duration) *harness.Suite {
	return harness.NewSuite().Register("slow", func(context.Context, dataset.Dataset) error {
		time.Sleep(d)
		return nil
	})
}

func TestPreTimeoutIsInconclusive(t *testing.T) {
	p, _ := testPipeline(t, Config{
		Actor:      "deployer",
		PreTimeout: time.Millisecond,
		Suite:      slowSuite(50 * time.Millisecond),
	})

	report, err := p.RunPre(context.Background(), testutil.NewDataset(testutil.GenerateRecords(5)...), checksum.NewScope())
	require.NoError(t, err)

	assert.True(t, report.Inconclusive)
	assert.False(t, report.Result.Passed)
	assert.Equal(t, StateInconclusive, report.State)

	// An inconclusive PRE blocks the deployment: post is refused.
	_, err = p.RunPost(context.Background(), testutil.NewDataset())
	assert.True(t, IsCode(err, ErrCodeInvalidState))
}

func TestPostTimeoutForcesRollback(t *testing.T) {
	p, _ := testPipeline(t, Config{
		Actor:       "deployer",
		PostTimeout: time.Millisecond,
		Suite:       slowSuite(50 * time.Millisecond),
	})
	ctx := context.Background()
	ds := testutil.NewDataset(testutil.GenerateRecords(5)...)

	pre, err := p.RunPre(ctx, ds, checksum.NewScope())
	require.NoError(t, err)
	require.True(t, pre.Result.Passed)

	post, err := p.RunPost(ctx, ds)
	require.NoError(t, err)
	assert.True(t, post.Inconclusive)
	assert.True(t, post.RollbackTriggered, "integrity could not be established, fail safe")
	assert.Equal(t, StateInconclusive, post.State)
	assert.Contains(t, post.RollbackReasons, "post phase timed out")
}

func TestPhaseOrderIsEnforced(t *testing.T) {
	p, _ := testPipeline(t, Config{Actor: "deployer"})
	ctx := context.Background()
	ds := testutil.NewDataset(testutil.GenerateRecords(1)...)

	_, err := p.RunPost(ctx, ds)
	assert.True(t, IsCode(err, ErrCodeInvalidState))

	_, err = p.RunPre(ctx, ds, checksum.NewScope())
	require.NoError(t, err)

	_, err = p.RunPre(ctx, ds, checksum.NewScope())
	assert.True(t, IsCode(err, ErrCodeInvalidState), "a pipeline is single-use")
}

func TestNewRejectsBadConfig(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = New(st, Config{}, zerolog.Nop())
	assert.True(t, IsCode(err, ErrCodeInvalidConfig), "actor is required")

	_, err = New(st, Config{Actor: "deployer", CreateBaseline: true}, zerolog.Nop())
	assert.True(t, IsCode(err, ErrCodeInvalidConfig), "capture needs a baseline name")

	_, err = New(st, Config{Actor: "deployer", PreTimeout: -time.Second}, zerolog.Nop())
	assert.True(t, IsCode(err, ErrCodeInvalidConfig))
}

func TestRunPropagatesActionError(t *testing.T) {
	p, _ := testPipeline(t, Config{Actor: "deployer"})
	ctx := context.Background()
	ds := testutil.NewDataset(testutil.GenerateRecords(1)...)

	_, err := p.Run(ctx, ds, checksum.NewScope(), func(_ context.Context, _ dataset.Dataset) (dataset.Dataset, error) {
		return dataset.Dataset{}, errors.New("deploy exploded")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deploy exploded")
	assert.Equal(t, StateReady, p.State(), "caller may still drive the post phase")
}

func TestEachPhaseAppendsOneAuditEntry(t *testing.T) {
	p, st := testPipeline(t, Config{Actor: "deployer", ChainID: "counted"})
	ctx := context.Background()
	ds := testutil.NewDataset(testutil.GenerateRecords(2)...)

	outcome, err := p.Run(ctx, ds, checksum.NewScope(), func(_ context.Context, d dataset.Dataset) (dataset.Dataset, error) {
		return d, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), outcome.Pre.AuditSequence)
	require.NotNil(t, outcome.Post)
	assert.Equal(t, int64(1), outcome.Post.AuditSequence)

	entries, err := st.ReadChain(ctx, "counted")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, string(audit.PhasePre), entries[0].Phase)
	assert.Equal(t, string(audit.PhasePost), entries[1].Phase)
}
