// Package harness runs named correctness checks against a dataset and
// compares persisted value snapshots. Checks express rules the schema
// cannot: referential integrity, business predicates, cross-record
// invariants.
package harness

import (
	"context"
	"fmt"

	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
)

// CheckFunc inspects a dataset and returns nil on pass. The returned
// error's message becomes the check result's message. The context is the
// running phase's; checks that touch storage must pass it through so a
// phase deadline reaches their reads.
type CheckFunc func(ctx context.Context, ds dataset.Dataset) error

type check struct {
	name     string
	required bool
	fn       CheckFunc
}

// Suite is an ordered collection of named checks. Checks run in
// registration order; a failure never stops the remaining checks.
type Suite struct {
	checks []check
}

// NewSuite returns an empty suite.
func NewSuite() *Suite { return &Suite{} }

// Register adds an optional check. Optional failures are reported but do
// not force a phase failure on their own.
func (s *Suite) Register(name string, fn CheckFunc) *Suite {
	s.checks = append(s.checks, check{name: name, fn: fn})
	return s
}

// RegisterRequired adds a check whose failure is a hard failure.
func (s *Suite) RegisterRequired(name string, fn CheckFunc) *Suite {
	s.checks = append(s.checks, check{name: name, required: true, fn: fn})
	return s
}

// Len returns the number of registered checks.
func (s *Suite) Len() int { return len(s.checks) }

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Required bool   `json:"required"`
	Message  string `json:"message,omitempty"`
}

// RunResult aggregates a suite run. Results preserve registration order.
type RunResult struct {
	Passed  int           `json:"passed"`
	Failed  int           `json:"failed"`
	Results []CheckResult `json:"results"`
}

// OK reports whether every check passed.
func (r RunResult) OK() bool { return r.Failed == 0 }

// RequiredFailures returns the names of failed required checks.
func (r RunResult) RequiredFailures() []string {
	var names []string
	for _, res := range r.Results {
		if res.Required && !res.Passed {
			names = append(names, res.Name)
		}
	}
	return names
}

// Run executes every registered check against the dataset.
func (s *Suite) Run(ctx context.Context, ds dataset.Dataset) RunResult {
	result := RunResult{Results: make([]CheckResult, 0, len(s.checks))}
	for _, c := range s.checks {
		res := CheckResult{Name: c.name, Required: c.required, Passed: true}
		if err := safeRun(ctx, c.fn, ds); err != nil {
			res.Passed = false
			res.Message = err.Error()
			result.Failed++
		} else {
			result.Passed++
		}
		result.Results = append(result.Results, res)
	}
	return result
}

// safeRun converts a panicking check into a failure instead of taking the
// whole run down. Caller-supplied predicates run arbitrary code.
func safeRun(ctx context.Context, fn CheckFunc, ds dataset.Dataset) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check panicked: %v", r)
		}
	}()
	return fn(ctx, ds)
}
