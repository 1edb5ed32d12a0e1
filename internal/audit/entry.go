package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
	"github.com/nhomyk/AgenticQA-sub001/internal/store"
)

// DomainEntry is the domain prefix for entry self-hashes.
const DomainEntry = "integrity/audit-entry/v1"

// GenesisHash is the fixed PrevHash of every chain's first entry.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Phase labels which pipeline phase produced an entry.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// Entry is one hash-linked audit record. Entries are append-only and
// never mutated; verification re-derives hashes, it never edits.
type Entry struct {
	Sequence     int64     `json:"sequence"`
	Timestamp    time.Time `json:"timestamp"`
	Actor        string    `json:"actor"`
	Phase        Phase     `json:"phase"`
	RootChecksum string    `json:"root_checksum"`
	Findings     []string  `json:"findings"`
	RiskScore    int64     `json:"risk_score"`
	PrevHash     string    `json:"prev_hash"`
	SelfHash     string    `json:"self_hash"`
}

// selfHash computes the entry's chain hash:
// SHA256(domain ‖ 0x00 ‖ prevHash ‖ 0x00 ‖ canonical(content)).
// The content excludes PrevHash and SelfHash; PrevHash enters the digest
// directly so the link itself is covered.
func (e Entry) selfHash() (string, error) {
	findings := make(dataset.Array, len(e.Findings))
	for i, f := range e.Findings {
		findings[i] = dataset.String(f)
	}

	content := dataset.Object{
		"sequence":      dataset.Int(e.Sequence),
		"timestamp":     dataset.String(e.Timestamp.UTC().Format(time.RFC3339Nano)),
		"actor":         dataset.String(e.Actor),
		"phase":         dataset.String(string(e.Phase)),
		"root_checksum": dataset.String(e.RootChecksum),
		"findings":      findings,
		"risk_score":    dataset.Int(e.RiskScore),
	}

	canonical, err := dataset.MarshalCanonical(content)
	if err != nil {
		return "", fmt.Errorf("canonicalize audit entry: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainEntry))
	h.Write([]byte{0x00})
	h.Write([]byte(e.PrevHash))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// toRecord converts an entry to its persisted form.
func (e Entry) toRecord(chainID string) (store.AuditEntryRecord, error) {
	findings, err := json.Marshal(e.Findings)
	if err != nil {
		return store.AuditEntryRecord{}, fmt.Errorf("marshal findings: %w", err)
	}
	return store.AuditEntryRecord{
		ChainID:      chainID,
		Seq:          e.Sequence,
		Timestamp:    e.Timestamp.UTC().Format(time.RFC3339Nano),
		Actor:        e.Actor,
		Phase:        string(e.Phase),
		RootChecksum: e.RootChecksum,
		Findings:     string(findings),
		RiskScore:    e.RiskScore,
		PrevHash:     e.PrevHash,
		SelfHash:     e.SelfHash,
	}, nil
}

// entryFromRecord converts a persisted row back into an Entry.
func entryFromRecord(rec store.AuditEntryRecord) (Entry, error) {
	ts, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
	if err != nil {
		return Entry{}, fmt.Errorf("parse audit timestamp %q: %w", rec.Timestamp, err)
	}
	var findings []string
	if rec.Findings != "" {
		if err := json.Unmarshal([]byte(rec.Findings), &findings); err != nil {
			return Entry{}, fmt.Errorf("parse audit findings: %w", err)
		}
	}
	return Entry{
		Sequence:     rec.Seq,
		Timestamp:    ts,
		Actor:        rec.Actor,
		Phase:        Phase(rec.Phase),
		RootChecksum: rec.RootChecksum,
		Findings:     findings,
		RiskScore:    rec.RiskScore,
		PrevHash:     rec.PrevHash,
		SelfHash:     rec.SelfHash,
	}, nil
}
