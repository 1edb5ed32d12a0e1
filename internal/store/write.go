package store

import (
	"context"
	"fmt"
)

// AppendAuditEntry inserts one audit chain entry.
//
// Unlike an idempotent event log, a sequence collision here is never
// benign: it means two appends raced on the same chain, which would break
// the causal hash link. The plain INSERT surfaces the primary-key
// conflict as an error so a partial or interleaved chain cannot be
// written silently.
func (s *Store) AppendAuditEntry(ctx context.Context, rec AuditEntryRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries
		(chain_id, seq, ts, actor, phase, root_checksum, findings, risk_score, prev_hash, self_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ChainID,
		rec.Seq,
		rec.Timestamp,
		rec.Actor,
		rec.Phase,
		rec.RootChecksum,
		rec.Findings,
		rec.RiskScore,
		rec.PrevHash,
		rec.SelfHash,
	)
	if err != nil {
		return fmt.Errorf("append audit entry (chain %s, seq %d): %w", rec.ChainID, rec.Seq, err)
	}
	return nil
}

// AppendBaseline inserts one baseline version.
// Versions are append-only per name; a (name, version) conflict is an
// error, never an overwrite.
func (s *Store) AppendBaseline(ctx context.Context, rec BaselineRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO baselines
		(name, version, created_at, description, root_checksum, leaf_checksums, stats)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Name,
		rec.Version,
		rec.CreatedAt,
		rec.Description,
		rec.RootChecksum,
		rec.LeafChecksums,
		rec.Stats,
	)
	if err != nil {
		return fmt.Errorf("append baseline (%s v%d): %w", rec.Name, rec.Version, err)
	}
	return nil
}

// PutSnapshot stores or replaces a named snapshot digest.
// This is the single mutable surface of the store, reached only through
// the harness's explicit update operation.
func (s *Store) PutSnapshot(ctx context.Context, rec SnapshotRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (name, digest, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET digest = excluded.digest, updated_at = excluded.updated_at
	`,
		rec.Name,
		rec.Digest,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put snapshot %q: %w", rec.Name, err)
	}
	return nil
}
