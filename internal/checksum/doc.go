// Package checksum computes content-addressed digests over datasets and
// classifies post-deployment differences against a declared scope.
//
// Every digest is a domain-separated SHA-256 over canonical JSON. Leaf
// checksums are per record; the root checksum is taken over the sorted
// leaf checksums, so reordering records leaves the root unchanged while
// any addition, removal, or field change moves it.
package checksum
