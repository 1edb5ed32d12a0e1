package checksum

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
)

// Digest holds the two checksum levels for one dataset: a leaf checksum
// per record keyed by identity, and a root checksum over the sorted leaf
// checksums. The root is independent of record order but sensitive to any
// addition, removal, or field-level change.
type Digest struct {
	Root   string            `json:"root"`
	Leaves map[string]string `json:"leaves"`
}

// Compute digests every record of the dataset and derives the root.
// Leaf hashing is pure CPU work and fans out across records; the ordered
// reduction into the root happens after all leaves are in.
//
// Fails on duplicate identities: a leaves map keyed by identity cannot
// represent two records with the same key.
func Compute(ctx context.Context, ds dataset.Dataset) (Digest, error) {
	type leaf struct {
		identity string
		sum      string
	}

	leaves := make([]leaf, len(ds.Records))

	g, ctx := errgroup.WithContext(ctx)
	for i, r := range ds.Records {
		i, r := i, r
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := ds.Identity(r)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			canonical, err := dataset.MarshalCanonical(r.Fields)
			if err != nil {
				return fmt.Errorf("record %d (%s): %w", i, id, err)
			}
			leaves[i] = leaf{identity: id, sum: Sum(DomainRecord, canonical)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Digest{}, err
	}

	byIdentity := make(map[string]string, len(leaves))
	for _, l := range leaves {
		if _, exists := byIdentity[l.identity]; exists {
			return Digest{}, &dataset.DuplicateIdentityError{Identity: l.identity}
		}
		byIdentity[l.identity] = l.sum
	}

	return Digest{
		Root:   rootOf(byIdentity),
		Leaves: byIdentity,
	}, nil
}

// rootOf reduces leaf checksums into the order-independent root:
// digest of the concatenation of the sorted leaf checksums.
// Leaves are fixed-length hex, so plain concatenation is unambiguous.
func rootOf(leaves map[string]string) string {
	sums := make([]string, 0, len(leaves))
	for _, s := range leaves {
		sums = append(sums, s)
	}
	sort.Strings(sums)
	return Sum(DomainRoot, []byte(strings.Join(sums, "")))
}

// SnapshotDigest hashes an arbitrary value for named-snapshot comparison.
func SnapshotDigest(v dataset.Value) (string, error) {
	canonical, err := dataset.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("snapshot digest: %w", err)
	}
	return Sum(DomainSnapshot, canonical), nil
}
