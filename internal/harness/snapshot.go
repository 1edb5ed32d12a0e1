package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhomyk/AgenticQA-sub001/internal/checksum"
	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
	"github.com/nhomyk/AgenticQA-sub001/internal/store"
)

// ErrSnapshotMissing reports a comparison against a name that was never
// recorded. The caller decides whether to Update or to treat this as a
// failure outright.
var ErrSnapshotMissing = errors.New("no snapshot recorded under this name")

// Snapshots compares value digests against named, persisted references.
// Check never writes: accepting a new reference is always the explicit
// Update call.
type Snapshots struct {
	st     *store.Store
	logger zerolog.Logger
	now    func() time.Time
}

// SnapshotOption configures Snapshots.
type SnapshotOption func(*Snapshots)

// WithClock overrides the update timestamp source.
func WithClock(now func() time.Time) SnapshotOption {
	return func(s *Snapshots) { s.now = now }
}

// NewSnapshots wraps the persistence layer.
func NewSnapshots(st *store.Store, logger zerolog.Logger, opts ...SnapshotOption) *Snapshots {
	s := &Snapshots{
		st:     st,
		logger: logger.With().Str("component", "snapshots").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check digests the value and compares it against the stored reference.
// Fails with ErrSnapshotMissing for an unknown name and with a mismatch
// error when the digests differ.
func (s *Snapshots) Check(ctx context.Context, name string, v dataset.Value) error {
	digest, err := checksum.SnapshotDigest(v)
	if err != nil {
		return fmt.Errorf("snapshot %q: %w", name, err)
	}

	rec, err := s.st.GetSnapshot(ctx, name)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("snapshot %q: %w", name, ErrSnapshotMissing)
	}
	if rec.Digest != digest {
		return fmt.Errorf("snapshot %q: digest %s does not match stored %s", name, digest, rec.Digest)
	}
	return nil
}

// Update digests the value and stores it as the new reference for the
// name, returning the digest.
func (s *Snapshots) Update(ctx context.Context, name string, v dataset.Value) (string, error) {
	digest, err := checksum.SnapshotDigest(v)
	if err != nil {
		return "", fmt.Errorf("snapshot %q: %w", name, err)
	}

	rec := store.SnapshotRecord{
		Name:      name,
		Digest:    digest,
		UpdatedAt: s.now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.st.PutSnapshot(ctx, rec); err != nil {
		return "", err
	}

	s.logger.Info().Str("name", name).Str("digest", digest).Msg("snapshot updated")
	return digest, nil
}

// CheckFn adapts a snapshot comparison of the whole dataset into a suite
// check registered under the given snapshot name. The stored-digest read
// runs under the suite's phase context.
func (s *Snapshots) CheckFn(name string) CheckFunc {
	return func(ctx context.Context, ds dataset.Dataset) error {
		fields := make(dataset.Array, len(ds.Records))
		for i, r := range ds.Records {
			fields[i] = r.Fields
		}
		return s.Check(ctx, name, fields)
	}
}
