package store

// AuditEntryRecord is the persisted form of one audit chain entry.
// Findings is canonical JSON text so the hashed content round-trips
// byte-identically through storage.
type AuditEntryRecord struct {
	ChainID      string
	Seq          int64
	Timestamp    string // RFC3339Nano UTC
	Actor        string
	Phase        string
	RootChecksum string
	Findings     string // JSON array of strings
	RiskScore    int64
	PrevHash     string
	SelfHash     string
}

// BaselineRecord is the persisted form of one golden baseline version.
type BaselineRecord struct {
	Name          string
	Version       int64
	CreatedAt     string // RFC3339Nano UTC
	Description   string
	RootChecksum  string
	LeafChecksums string // JSON object: identity -> checksum
	Stats         string // JSON object
}

// SnapshotRecord is the persisted digest for one named harness snapshot.
type SnapshotRecord struct {
	Name      string
	Digest    string
	UpdatedAt string // RFC3339Nano UTC
}
