// Package audit implements the tamper-evident audit chain: an
// append-only log where every entry's self-hash covers its content and
// the previous entry's self-hash.
//
// The load-bearing invariant is failure locality: recomputing every
// self-hash in order reproduces the stored values, and the first entry
// where it does not is reported by index, so a verifier can say not just
// that history was altered but where.
package audit
