// Package baseline manages golden baselines: named, versioned reference
// digests of known-good datasets. Versions are append-only; creating a
// baseline under an existing name adds a new version and never rewrites
// history.
package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhomyk/AgenticQA-sub001/internal/checksum"
	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
	"github.com/nhomyk/AgenticQA-sub001/internal/reconcile"
	"github.com/nhomyk/AgenticQA-sub001/internal/store"
)

// Baseline is one captured reference version: the dataset's checksums and
// statistics at capture time. Record content is deliberately not stored;
// comparison against a baseline works at checksum granularity.
type Baseline struct {
	Name          string            `json:"name"`
	Version       int64             `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
	Description   string            `json:"description,omitempty"`
	RootChecksum  string            `json:"root_checksum"`
	LeafChecksums map[string]string `json:"leaf_checksums"`
	Stats         checksum.Stats    `json:"stats"`
}

// Store persists and retrieves baselines.
type Store struct {
	st     *store.Store
	logger zerolog.Logger
	now    func() time.Time

	mu sync.Mutex // serializes version allocation per process
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore wraps the persistence layer.
func NewStore(st *store.Store, logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		st:     st,
		logger: logger.With().Str("component", "baseline").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create captures the dataset as the next version under the given name
// and persists it. The first version of a name is 1.
func (s *Store) Create(ctx context.Context, name string, ds dataset.Dataset, description string) (Baseline, error) {
	if name == "" {
		return Baseline{}, fmt.Errorf("create baseline: name must not be empty")
	}

	digest, err := checksum.Compute(ctx, ds)
	if err != nil {
		return Baseline{}, fmt.Errorf("create baseline %q: %w", name, err)
	}
	stats, err := checksum.ComputeStats(ds)
	if err != nil {
		return Baseline{}, fmt.Errorf("create baseline %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest, err := s.st.LatestBaselineVersion(ctx, name)
	if err != nil {
		return Baseline{}, fmt.Errorf("create baseline %q: %w", name, err)
	}

	b := Baseline{
		Name:          name,
		Version:       latest + 1,
		CreatedAt:     s.now().UTC(),
		Description:   description,
		RootChecksum:  digest.Root,
		LeafChecksums: digest.Leaves,
		Stats:         stats,
	}

	rec, err := b.toRecord()
	if err != nil {
		return Baseline{}, fmt.Errorf("create baseline %q: %w", name, err)
	}
	if err := s.st.AppendBaseline(ctx, rec); err != nil {
		return Baseline{}, err
	}

	s.logger.Info().
		Str("name", name).
		Int64("version", b.Version).
		Int("records", len(b.LeafChecksums)).
		Str("root", b.RootChecksum).
		Msg("baseline created")

	return b, nil
}

// Get returns the latest version under a name, or nil if the name is
// unknown.
func (s *Store) Get(ctx context.Context, name string) (*Baseline, error) {
	latest, err := s.st.LatestBaselineVersion(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get baseline %q: %w", name, err)
	}
	if latest == 0 {
		return nil, nil
	}
	return s.GetVersion(ctx, name, latest)
}

// GetVersion returns one specific version, or nil if absent.
func (s *Store) GetVersion(ctx context.Context, name string, version int64) (*Baseline, error) {
	rec, err := s.st.ReadBaseline(ctx, name, version)
	if err != nil {
		return nil, fmt.Errorf("get baseline %s v%d: %w", name, version, err)
	}
	if rec == nil {
		return nil, nil
	}
	b, err := fromRecord(*rec)
	if err != nil {
		return nil, fmt.Errorf("get baseline %s v%d: %w", name, version, err)
	}
	return &b, nil
}

// List returns the latest version of every stored baseline, ordered by
// name.
func (s *Store) List(ctx context.Context) ([]Baseline, error) {
	records, err := s.st.ListBaselines(ctx)
	if err != nil {
		return nil, err
	}
	baselines := make([]Baseline, 0, len(records))
	for _, rec := range records {
		b, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("list baselines: %w", err)
		}
		baselines = append(baselines, b)
	}
	return baselines, nil
}

// Compare digests the dataset and reconciles its leaf checksums against
// the baseline's. Changed records carry no field diffs: the baseline
// holds checksums, not content.
func (s *Store) Compare(ctx context.Context, ds dataset.Dataset, b Baseline) (reconcile.Report, error) {
	digest, err := checksum.Compute(ctx, ds)
	if err != nil {
		return reconcile.Report{}, fmt.Errorf("compare against baseline %s v%d: %w", b.Name, b.Version, err)
	}
	return reconcile.Checksums(b.LeafChecksums, digest.Leaves), nil
}

func (b Baseline) toRecord() (store.BaselineRecord, error) {
	leaves, err := json.Marshal(b.LeafChecksums)
	if err != nil {
		return store.BaselineRecord{}, fmt.Errorf("encode leaf checksums: %w", err)
	}
	stats, err := json.Marshal(b.Stats)
	if err != nil {
		return store.BaselineRecord{}, fmt.Errorf("encode stats: %w", err)
	}
	return store.BaselineRecord{
		Name:          b.Name,
		Version:       b.Version,
		CreatedAt:     b.CreatedAt.Format(time.RFC3339Nano),
		Description:   b.Description,
		RootChecksum:  b.RootChecksum,
		LeafChecksums: string(leaves),
		Stats:         string(stats),
	}, nil
}

func fromRecord(rec store.BaselineRecord) (Baseline, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return Baseline{}, fmt.Errorf("decode created_at: %w", err)
	}
	var leaves map[string]string
	if err := json.Unmarshal([]byte(rec.LeafChecksums), &leaves); err != nil {
		return Baseline{}, fmt.Errorf("decode leaf checksums: %w", err)
	}
	var stats checksum.Stats
	if err := json.Unmarshal([]byte(rec.Stats), &stats); err != nil {
		return Baseline{}, fmt.Errorf("decode stats: %w", err)
	}
	return Baseline{
		Name:          rec.Name,
		Version:       rec.Version,
		CreatedAt:     createdAt,
		Description:   rec.Description,
		RootChecksum:  rec.RootChecksum,
		LeafChecksums: leaves,
		Stats:         stats,
	}, nil
}
