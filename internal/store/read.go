package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReadChain returns all entries for a chain in sequence order.
// Returns an empty slice (not nil) for an unknown chain.
func (s *Store) ReadChain(ctx context.Context, chainID string) ([]AuditEntryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chain_id, seq, ts, actor, phase, root_checksum, findings, risk_score, prev_hash, self_hash
		FROM audit_entries
		WHERE chain_id = ?
		ORDER BY seq ASC
	`, chainID)
	if err != nil {
		return nil, fmt.Errorf("query chain %s: %w", chainID, err)
	}
	defer rows.Close()

	entries := []AuditEntryRecord{}
	for rows.Next() {
		var rec AuditEntryRecord
		if err := rows.Scan(
			&rec.ChainID, &rec.Seq, &rec.Timestamp, &rec.Actor, &rec.Phase,
			&rec.RootChecksum, &rec.Findings, &rec.RiskScore, &rec.PrevHash, &rec.SelfHash,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chain %s: %w", chainID, err)
	}

	return entries, nil
}

// ReadChainTail returns the highest-sequence entry of a chain, or nil for
// an empty chain.
func (s *Store) ReadChainTail(ctx context.Context, chainID string) (*AuditEntryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chain_id, seq, ts, actor, phase, root_checksum, findings, risk_score, prev_hash, self_hash
		FROM audit_entries
		WHERE chain_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, chainID)

	var rec AuditEntryRecord
	err := row.Scan(
		&rec.ChainID, &rec.Seq, &rec.Timestamp, &rec.Actor, &rec.Phase,
		&rec.RootChecksum, &rec.Findings, &rec.RiskScore, &rec.PrevHash, &rec.SelfHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chain tail %s: %w", chainID, err)
	}
	return &rec, nil
}

// LatestBaselineVersion returns the highest persisted version for a
// baseline name, or 0 if the name is unknown.
func (s *Store) LatestBaselineVersion(ctx context.Context, name string) (int64, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(version) FROM baselines WHERE name = ?`, name,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("latest baseline version %q: %w", name, err)
	}
	if !version.Valid {
		return 0, nil
	}
	return version.Int64, nil
}

// ReadBaseline returns one baseline version, or nil if absent.
func (s *Store) ReadBaseline(ctx context.Context, name string, version int64) (*BaselineRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, version, created_at, description, root_checksum, leaf_checksums, stats
		FROM baselines
		WHERE name = ? AND version = ?
	`, name, version)

	var rec BaselineRecord
	err := row.Scan(
		&rec.Name, &rec.Version, &rec.CreatedAt, &rec.Description,
		&rec.RootChecksum, &rec.LeafChecksums, &rec.Stats,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read baseline %s v%d: %w", name, version, err)
	}
	return &rec, nil
}

// ListBaselines returns the latest version of every baseline name,
// ordered by name.
func (s *Store) ListBaselines(ctx context.Context) ([]BaselineRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.name, b.version, b.created_at, b.description, b.root_checksum, b.leaf_checksums, b.stats
		FROM baselines b
		JOIN (SELECT name, MAX(version) AS version FROM baselines GROUP BY name) latest
		  ON b.name = latest.name AND b.version = latest.version
		ORDER BY b.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list baselines: %w", err)
	}
	defer rows.Close()

	records := []BaselineRecord{}
	for rows.Next() {
		var rec BaselineRecord
		if err := rows.Scan(
			&rec.Name, &rec.Version, &rec.CreatedAt, &rec.Description,
			&rec.RootChecksum, &rec.LeafChecksums, &rec.Stats,
		); err != nil {
			return nil, fmt.Errorf("scan baseline: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate baselines: %w", err)
	}
	return records, nil
}

// GetSnapshot returns the stored digest for a named snapshot, or nil if
// no snapshot has been recorded under that name.
func (s *Store) GetSnapshot(ctx context.Context, name string) (*SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, digest, updated_at FROM snapshots WHERE name = ?`, name)

	var rec SnapshotRecord
	err := row.Scan(&rec.Name, &rec.Digest, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %q: %w", name, err)
	}
	return &rec, nil
}
