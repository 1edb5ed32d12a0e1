// Package pipeline sequences validation around a deployment action: a PRE
// phase gates the deployment, a POST phase inspects its result and renders
// the rollback decision. Each phase appends exactly one audit entry, even
// when it aborts early.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhomyk/AgenticQA-sub001/internal/anomaly"
	"github.com/nhomyk/AgenticQA-sub001/internal/audit"
	"github.com/nhomyk/AgenticQA-sub001/internal/baseline"
	"github.com/nhomyk/AgenticQA-sub001/internal/checksum"
	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
	"github.com/nhomyk/AgenticQA-sub001/internal/harness"
	"github.com/nhomyk/AgenticQA-sub001/internal/reconcile"
	"github.com/nhomyk/AgenticQA-sub001/internal/schema"
	"github.com/nhomyk/AgenticQA-sub001/internal/store"
)

// State is the pipeline's lifecycle position.
type State string

const (
	StateIdle         State = "idle"
	StateReady        State = "ready"
	StateAborted      State = "aborted"
	StateCompleted    State = "completed"
	StateRolledBack   State = "rolled_back"
	StateInconclusive State = "inconclusive"
)

// Config declares what one pipeline run validates.
type Config struct {
	// Actor is recorded on every audit entry.
	Actor string `validate:"required"`

	// ChainID selects the audit chain. Empty means a fresh chain per run.
	ChainID string

	// Schema, when set, is validated against the dataset in both phases.
	Schema *schema.Schema

	// RequiredFields drive the PRE completeness check.
	RequiredFields []string

	// Thresholds configure drift detection. The zero value means defaults.
	Thresholds anomaly.Thresholds

	// BaselineName, when set, selects the golden baseline compared against
	// the POST dataset. With CreateBaseline, PRE captures a new version.
	BaselineName        string
	CreateBaseline      bool
	BaselineDescription string

	// Suite holds the caller's custom checks, run in both phases.
	Suite *harness.Suite

	// Per-phase deadlines. Zero disables the deadline. An expired phase is
	// inconclusive: PRE blocks the deployment, POST forces rollback.
	PreTimeout  time.Duration `validate:"gte=0"`
	PostTimeout time.Duration `validate:"gte=0"`
}

var structValidate = validator.New(validator.WithRequiredStructEnabled())

// ValidationResult aggregates one phase's outcome.
type ValidationResult struct {
	Passed    bool     `json:"passed"`
	Errors    []Error  `json:"errors"`
	Warnings  []string `json:"warnings"`
	RiskScore int64    `json:"risk_score"`
}

// Report is the full diagnostic record of one phase.
type Report struct {
	RunID   string      `json:"run_id"`
	ChainID string      `json:"chain_id"`
	Phase   audit.Phase `json:"phase"`
	State   State       `json:"state"`

	Result       ValidationResult `json:"result"`
	Inconclusive bool             `json:"inconclusive"`

	SchemaResult       *schema.Result       `json:"schema_result,omitempty"`
	Diff               *checksum.DiffResult `json:"diff,omitempty"`
	Anomalies          []anomaly.Finding    `json:"anomalies,omitempty"`
	Reconciliation     *reconcile.Report    `json:"reconciliation,omitempty"`
	BaselineComparison *reconcile.Report    `json:"baseline_comparison,omitempty"`
	Tests              *harness.RunResult   `json:"tests,omitempty"`

	// AuditSequence is the sequence of the entry this phase appended, or
	// -1 when the append itself failed.
	AuditSequence int64 `json:"audit_sequence"`

	RollbackTriggered bool     `json:"rollback_triggered"`
	RollbackReasons   []string `json:"rollback_reasons,omitempty"`
}

// Pipeline validates one deployment. A pipeline is single-use: Idle →
// RunPre → Ready → RunPost → terminal. Runs against different chains are
// fully independent; appends within one chain serialize on the chain's
// mutex.
type Pipeline struct {
	cfg       Config
	runID     string
	chain     *audit.Chain
	baselines *baseline.Store
	logger    zerolog.Logger

	mu       sync.Mutex
	state    State
	scope    checksum.Scope
	preIndex map[string]dataset.Record
	pre      checksum.Digest
	preStats checksum.Stats
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the timestamp source of the audit chain and
// baseline store. Used by tests for reproducible hashes.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds a pipeline over the given store. The configuration is
// validated up front; a malformed configuration never produces a
// half-running pipeline.
func New(st *store.Store, cfg Config, logger zerolog.Logger, opts ...Option) (*Pipeline, error) {
	if err := structValidate.Struct(cfg); err != nil {
		return nil, newError(ErrCodeInvalidConfig, "", "invalid config: %v", err)
	}
	if cfg.Thresholds == (anomaly.Thresholds{}) {
		cfg.Thresholds = anomaly.DefaultThresholds()
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, newError(ErrCodeInvalidConfig, "", "%v", err)
	}
	if cfg.CreateBaseline && cfg.BaselineName == "" {
		return nil, newError(ErrCodeInvalidConfig, "", "CreateBaseline requires BaselineName")
	}
	if cfg.ChainID == "" {
		cfg.ChainID = uuid.NewString()
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	runID := uuid.NewString()
	logger = logger.With().Str("run_id", runID).Str("chain_id", cfg.ChainID).Logger()

	return &Pipeline{
		cfg:       cfg,
		runID:     runID,
		chain:     audit.NewChain(st, cfg.ChainID, logger, audit.WithClock(o.now)),
		baselines: baseline.NewStore(st, logger, baseline.WithClock(o.now)),
		logger:    logger,
		state:     StateIdle,
	}, nil
}

// RunID returns the run identifier stamped on logs and reports.
func (p *Pipeline) RunID() string { return p.runID }

// ChainID returns the audit chain identifier.
func (p *Pipeline) ChainID() string { return p.cfg.ChainID }

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// phaseRun accumulates one phase's findings. A hard failure sets aborted,
// which skips the remaining checks; the audit append still happens.
type phaseRun struct {
	phase    audit.Phase
	errors   []Error
	warnings []string
	aborted  bool
	timedOut bool
}

func (r *phaseRun) fail(e *Error) {
	r.errors = append(r.errors, *e)
	r.aborted = true
}

func (r *phaseRun) warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// findings renders errors then warnings for the phase's audit entry.
func (r *phaseRun) findings() []string {
	out := make([]string, 0, len(r.errors)+len(r.warnings))
	for i := range r.errors {
		out = append(out, r.errors[i].Error())
	}
	for _, w := range r.warnings {
		out = append(out, "warning: "+w)
	}
	return out
}

// riskScore weighs the phase's findings into a 0-100 score.
func (r *phaseRun) riskScore() int64 {
	score := int64(len(r.errors))*25 + int64(len(r.warnings))*10
	if score > 100 {
		score = 100
	}
	return score
}

// RunPre validates the dataset before deployment. On pass the pipeline
// transitions to Ready and the caller may execute the deployment action;
// on hard failure it transitions to Aborted. The scope declares which
// identities the action is permitted to modify.
func (p *Pipeline) RunPre(ctx context.Context, ds dataset.Dataset, scope checksum.Scope) (Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return Report{}, newError(ErrCodeInvalidState, string(audit.PhasePre),
			"pre phase requires state %s, pipeline is %s", StateIdle, p.state)
	}

	if p.cfg.PreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.PreTimeout)
		defer cancel()
	}

	run := &phaseRun{phase: audit.PhasePre}
	report := Report{RunID: p.runID, ChainID: p.cfg.ChainID, Phase: audit.PhasePre}
	p.scope = scope

	if p.cfg.Schema != nil {
		res := schema.Validate(ds, p.cfg.Schema)
		report.SchemaResult = &res
		if !res.Passed {
			run.fail(newError(ErrCodeSchemaViolation, string(audit.PhasePre),
				"%d schema violation(s), first: %s", len(res.Violations), res.Violations[0].String()))
		}
	}

	// Digesting also performs the duplicate-identity check: a leaves map
	// keyed by identity cannot hold two records with the same key.
	if !run.aborted {
		digest, err := checksum.Compute(ctx, ds)
		if err != nil {
			run.fail(classifyDigestErr(err, audit.PhasePre))
		} else {
			p.pre = digest
			p.preIndex, _ = ds.Index() // uniqueness just proven by Compute
		}
	}

	if !run.aborted && len(p.cfg.RequiredFields) > 0 {
		if err := harness.Completeness(p.cfg.RequiredFields...)(ctx, ds); err != nil {
			run.fail(newError(ErrCodeCompleteness, string(audit.PhasePre), "%v", err))
		}
	}

	if !run.aborted {
		p.runSuite(ctx, ds, run, &report)
	}

	if !run.aborted && p.cfg.CreateBaseline {
		b, err := p.baselines.Create(ctx, p.cfg.BaselineName, ds, p.cfg.BaselineDescription)
		if err != nil {
			run.fail(newError(ErrCodeStorageFailure, string(audit.PhasePre),
				"create baseline %q: %v", p.cfg.BaselineName, err))
		} else {
			p.logger.Info().Int64("version", b.Version).Msg("pre-phase baseline captured")
		}
	}

	if !run.aborted {
		stats, err := checksum.ComputeStats(ds)
		if err != nil {
			run.fail(newError(ErrCodeChecksumFailure, string(audit.PhasePre), "compute stats: %v", err))
		} else {
			p.preStats = stats
		}
	}

	p.finishPhase(ctx, run, &report, p.pre.Root)

	switch {
	case run.timedOut:
		p.state = StateInconclusive
	case len(run.errors) > 0:
		p.state = StateAborted
	default:
		p.state = StateReady
	}
	report.State = p.state

	p.logger.Info().
		Str("phase", string(audit.PhasePre)).
		Str("state", string(p.state)).
		Bool("passed", report.Result.Passed).
		Int("errors", len(run.errors)).
		Int("warnings", len(run.warnings)).
		Msg("pre phase finished")

	return report, nil
}

// RunPost validates the deployment result and renders the rollback
// decision. Rollback is triggered if and only if: the result fails schema
// validation, an out-of-scope checksum change exists, any anomaly is
// critical, the audit chain fails verification, a required check fails,
// or the phase times out. The pipeline only decides; executing the
// rollback is the caller's job.
func (p *Pipeline) RunPost(ctx context.Context, result dataset.Dataset) (Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateReady {
		return Report{}, newError(ErrCodeInvalidState, string(audit.PhasePost),
			"post phase requires state %s, pipeline is %s", StateReady, p.state)
	}

	if p.cfg.PostTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.PostTimeout)
		defer cancel()
	}

	run := &phaseRun{phase: audit.PhasePost}
	report := Report{RunID: p.runID, ChainID: p.cfg.ChainID, Phase: audit.PhasePost}
	var rollback []string

	if p.cfg.Schema != nil {
		res := schema.Validate(result, p.cfg.Schema)
		report.SchemaResult = &res
		if !res.Passed {
			run.fail(newError(ErrCodeSchemaViolation, string(audit.PhasePost),
				"%d schema violation(s), first: %s", len(res.Violations), res.Violations[0].String()))
			rollback = append(rollback, "deployment result fails schema validation")
		}
	}

	var post checksum.Digest
	if !run.aborted {
		var err error
		post, err = checksum.Compute(ctx, result)
		if err != nil {
			run.fail(classifyDigestErr(err, audit.PhasePost))
		}
	}

	if !run.aborted {
		diff := checksum.Diff(p.pre, post, p.scope)
		report.Diff = &diff

		if postIndex, err := result.Index(); err == nil {
			rec := reconcile.Records(p.preIndex, postIndex)
			report.Reconciliation = &rec
		}

		if violations := diff.ScopeViolations(); len(violations) > 0 {
			run.fail(newError(ErrCodeScopeViolation, string(audit.PhasePost),
				"%d record(s) changed outside the declared scope, first: %s (%s)",
				len(violations), violations[0].Identity, violations[0].Class))
			rollback = append(rollback, "out-of-scope data changed")
		}
	}

	if !run.aborted {
		stats, err := checksum.ComputeStats(result)
		if err != nil {
			run.fail(newError(ErrCodeChecksumFailure, string(audit.PhasePost), "compute stats: %v", err))
		} else {
			findings := anomaly.Detect(p.preStats, stats, p.cfg.Thresholds)
			report.Anomalies = findings
			if anomaly.HasCritical(findings) {
				run.fail(newError(ErrCodeAnomalyCritical, string(audit.PhasePost),
					"critical statistical drift detected (%d finding(s))", len(findings)))
				rollback = append(rollback, "critical anomaly")
			} else {
				for _, f := range findings {
					run.warn("anomaly %s: %s drifted %.1f%% (threshold %.1f%%)",
						f.Severity, f.Metric, f.DeltaPercent, f.Threshold)
				}
			}
		}
	}

	if !run.aborted && p.cfg.BaselineName != "" {
		b, err := p.baselines.Get(ctx, p.cfg.BaselineName)
		switch {
		case err != nil:
			run.fail(newError(ErrCodeStorageFailure, string(audit.PhasePost),
				"read baseline %q: %v", p.cfg.BaselineName, err))
		case b == nil:
			run.warn("baseline %q not found, comparison skipped", p.cfg.BaselineName)
		default:
			cmp, err := p.baselines.Compare(ctx, result, *b)
			if err != nil {
				run.fail(newError(ErrCodeStorageFailure, string(audit.PhasePost),
					"compare baseline %q: %v", p.cfg.BaselineName, err))
			} else {
				report.BaselineComparison = &cmp
				if !cmp.Empty() {
					run.warn("result deviates from baseline %s v%d: %d added, %d removed, %d changed",
						b.Name, b.Version, len(cmp.Added), len(cmp.Removed), len(cmp.Changed))
				}
			}
		}
	}

	if !run.aborted {
		verify, err := p.chain.Verify(ctx)
		if err != nil {
			run.fail(newError(ErrCodeStorageFailure, string(audit.PhasePost), "verify chain: %v", err))
		} else if !verify.OK {
			run.fail(newError(ErrCodeAuditTamper, string(audit.PhasePost),
				"audit chain broken at entry %d", verify.BrokenAt))
			rollback = append(rollback, "audit chain failed verification")
		}
	}

	if !run.aborted {
		before := len(run.errors)
		p.runSuite(ctx, result, run, &report)
		if len(run.errors) > before {
			rollback = append(rollback, "required check failed on deployment result")
		}
	}

	p.finishPhase(ctx, run, &report, post.Root)
	if run.timedOut {
		rollback = append(rollback, "post phase timed out")
	}

	report.RollbackTriggered = len(rollback) > 0
	report.RollbackReasons = rollback

	switch {
	case run.timedOut:
		p.state = StateInconclusive
	case report.RollbackTriggered:
		p.state = StateRolledBack
	default:
		p.state = StateCompleted
	}
	report.State = p.state

	p.logger.Info().
		Str("phase", string(audit.PhasePost)).
		Str("state", string(p.state)).
		Bool("passed", report.Result.Passed).
		Bool("rollback", report.RollbackTriggered).
		Msg("post phase finished")

	return report, nil
}

// Outcome pairs the two phase reports of a full run. Post is nil when the
// PRE phase blocked the deployment.
type Outcome struct {
	Pre  Report  `json:"pre"`
	Post *Report `json:"post,omitempty"`
}

// Action is the deployment step the pipeline validates around. It
// receives the validated dataset and returns the dataset as it exists
// after the deployment.
type Action func(ctx context.Context, ds dataset.Dataset) (dataset.Dataset, error)

// Run executes the full cycle: PRE, the deployment action, POST. The
// action only runs when PRE passes; an action error leaves the pipeline
// Ready so the caller can inspect and re-drive POST on its own.
func (p *Pipeline) Run(ctx context.Context, ds dataset.Dataset, scope checksum.Scope, action Action) (Outcome, error) {
	pre, err := p.RunPre(ctx, ds, scope)
	if err != nil {
		return Outcome{Pre: pre}, err
	}
	if !pre.Result.Passed {
		return Outcome{Pre: pre}, nil
	}

	result, err := action(ctx, ds)
	if err != nil {
		return Outcome{Pre: pre}, fmt.Errorf("deployment action: %w", err)
	}

	post, err := p.RunPost(ctx, result)
	if err != nil {
		return Outcome{Pre: pre}, err
	}
	return Outcome{Pre: pre, Post: &post}, nil
}

// runSuite runs the caller's checks. Required failures are hard, optional
// failures are warnings.
func (p *Pipeline) runSuite(ctx context.Context, ds dataset.Dataset, run *phaseRun, report *Report) {
	if p.cfg.Suite == nil || p.cfg.Suite.Len() == 0 {
		return
	}
	res := p.cfg.Suite.Run(ctx, ds)
	report.Tests = &res

	if required := res.RequiredFailures(); len(required) > 0 {
		run.fail(newError(ErrCodeTestFailure, string(run.phase),
			"%d required check(s) failed: %v", len(required), required))
	}
	for _, r := range res.Results {
		if !r.Passed && !r.Required {
			run.warn("check %q failed: %s", r.Name, r.Message)
		}
	}
}

// finishPhase classifies a deadline expiry and appends the phase's single
// audit entry carrying the given root checksum. The append uses an
// uncancellable context: the entry must be written even when the phase
// deadline has already passed.
func (p *Pipeline) finishPhase(ctx context.Context, run *phaseRun, report *Report, root string) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		run.timedOut = true
		run.errors = append(run.errors, *newError(ErrCodePhaseTimeout, string(run.phase),
			"phase deadline expired before all checks completed"))
	}

	risk := run.riskScore()
	entry, err := p.chain.Append(context.WithoutCancel(ctx),
		p.cfg.Actor, run.phase, root, run.findings(), risk)
	if err != nil {
		run.errors = append(run.errors, *newError(ErrCodeStorageFailure, string(run.phase),
			"append audit entry: %v", err))
		report.AuditSequence = -1
	} else {
		report.AuditSequence = entry.Sequence
	}

	errs := run.errors
	if errs == nil {
		errs = []Error{}
	}
	warnings := run.warnings
	if warnings == nil {
		warnings = []string{}
	}

	report.Inconclusive = run.timedOut
	report.Result = ValidationResult{
		Passed:    len(errs) == 0,
		Errors:    errs,
		Warnings:  warnings,
		RiskScore: risk,
	}
}

// classifyDigestErr maps a digest failure to its error category.
func classifyDigestErr(err error, phase audit.Phase) *Error {
	var dup *dataset.DuplicateIdentityError
	if errors.As(err, &dup) {
		return newError(ErrCodeDuplicateIdentity, string(phase), "%v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrCodePhaseTimeout, string(phase), "digest interrupted: %v", err)
	}
	return newError(ErrCodeChecksumFailure, string(phase), "digest: %v", err)
}
