package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhomyk/AgenticQA-sub001/internal/store"
)

// Chain is one append-only, hash-linked audit log.
//
// Entries are causally ordered: each self-hash covers the previous
// entry's self-hash, so appends against one chain must be serialized.
// The chain's mutex is that mutual-exclusion region; chains with
// different identifiers are fully independent.
type Chain struct {
	id     string
	st     *store.Store
	logger zerolog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// Option configures a Chain.
type Option func(*Chain)

// WithClock overrides the chain's timestamp source. Used by tests to make
// entry hashes reproducible.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

// NewChain opens the chain with the given identifier. The chain may
// already hold entries from previous runs; appends continue the existing
// sequence.
func NewChain(st *store.Store, id string, logger zerolog.Logger, opts ...Option) *Chain {
	c := &Chain{
		id:     id,
		st:     st,
		logger: logger.With().Str("chain_id", id).Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the chain identifier.
func (c *Chain) ID() string { return c.id }

// Append links a new entry to the chain tail and persists it durably
// before returning. An append that cannot be persisted fails loudly;
// there is no in-memory chain state to get out of sync.
func (c *Chain) Append(ctx context.Context, actor string, phase Phase, rootChecksum string, findings []string, riskScore int64) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tail, err := c.st.ReadChainTail(ctx, c.id)
	if err != nil {
		return Entry{}, fmt.Errorf("append to chain %s: %w", c.id, err)
	}

	seq := int64(0)
	prevHash := GenesisHash
	if tail != nil {
		seq = tail.Seq + 1
		prevHash = tail.SelfHash
	}

	if findings == nil {
		findings = []string{}
	}

	entry := Entry{
		Sequence:     seq,
		Timestamp:    c.now().UTC(),
		Actor:        actor,
		Phase:        phase,
		RootChecksum: rootChecksum,
		Findings:     findings,
		RiskScore:    riskScore,
		PrevHash:     prevHash,
	}
	entry.SelfHash, err = entry.selfHash()
	if err != nil {
		return Entry{}, fmt.Errorf("append to chain %s: %w", c.id, err)
	}

	rec, err := entry.toRecord(c.id)
	if err != nil {
		return Entry{}, fmt.Errorf("append to chain %s: %w", c.id, err)
	}
	if err := c.st.AppendAuditEntry(ctx, rec); err != nil {
		return Entry{}, err
	}

	c.logger.Info().
		Int64("seq", entry.Sequence).
		Str("actor", actor).
		Str("phase", string(phase)).
		Int64("risk_score", riskScore).
		Int("findings", len(findings)).
		Msg("audit entry appended")

	return entry, nil
}

// VerifyResult reports chain integrity. BrokenAt is -1 when the chain is
// intact, otherwise the index of the first entry whose stored hashes do
// not re-derive from its content and predecessor.
type VerifyResult struct {
	OK       bool `json:"ok"`
	BrokenAt int  `json:"broken_at"`
}

// Verify walks the chain from index 0, recomputing every self-hash and
// checking every link. It reports the first mismatch and never repairs.
func (c *Chain) Verify(ctx context.Context) (VerifyResult, error) {
	records, err := c.st.ReadChain(ctx, c.id)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("verify chain %s: %w", c.id, err)
	}

	prevHash := GenesisHash
	for i, rec := range records {
		entry, err := entryFromRecord(rec)
		if err != nil {
			// An unparseable row is a broken chain, not an I/O failure.
			return VerifyResult{OK: false, BrokenAt: i}, nil
		}

		if entry.Sequence != int64(i) || entry.PrevHash != prevHash {
			return VerifyResult{OK: false, BrokenAt: i}, nil
		}

		recomputed, err := entry.selfHash()
		if err != nil {
			return VerifyResult{OK: false, BrokenAt: i}, nil
		}
		if recomputed != entry.SelfHash {
			return VerifyResult{OK: false, BrokenAt: i}, nil
		}

		prevHash = entry.SelfHash
	}

	return VerifyResult{OK: true, BrokenAt: -1}, nil
}

// Filter narrows a chain query. Zero values match everything.
type Filter struct {
	Actor   string
	Phase   Phase
	Since   time.Time
	Until   time.Time
	MinRisk int64
}

func (f Filter) matches(e Entry) bool {
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if f.Phase != "" && e.Phase != f.Phase {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	if e.RiskScore < f.MinRisk {
		return false
	}
	return true
}

// Query returns the persisted entries matching the filter, in sequence
// order. Read-only: querying never mutates the chain.
func (c *Chain) Query(ctx context.Context, f Filter) ([]Entry, error) {
	records, err := c.st.ReadChain(ctx, c.id)
	if err != nil {
		return nil, fmt.Errorf("query chain %s: %w", c.id, err)
	}

	entries := []Entry{}
	for _, rec := range records {
		entry, err := entryFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("query chain %s: %w", c.id, err)
		}
		if f.matches(entry) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
