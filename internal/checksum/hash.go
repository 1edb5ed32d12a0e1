package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed digests.
// Version suffix enables future algorithm migration.
const (
	DomainRecord   = "integrity/record/v1"
	DomainRoot     = "integrity/root/v1"
	DomainSnapshot = "integrity/snapshot/v1"
)

// Sum computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func Sum(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
