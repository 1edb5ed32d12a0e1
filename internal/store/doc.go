// Package store persists audit chain entries, golden baseline versions,
// and harness snapshot digests in SQLite.
//
// The contract is append-only: audit entries and baselines are inserted,
// never updated or deleted, and insert conflicts fail loudly rather than
// being absorbed. Snapshot digests are the single exception and change
// only through the harness's explicit update operation.
package store
