// Package dataset defines the Record and Dataset model and the canonical
// JSON serialization that all checksums are computed over.
//
// Canonical serialization follows RFC 8785: object keys sorted by UTF-16
// code units, NFC-normalized strings, no HTML escaping, and normalized
// number formatting. Two datasets that differ only in key insertion order
// or in integral-float spelling (2 vs 2.0) serialize identically.
package dataset
