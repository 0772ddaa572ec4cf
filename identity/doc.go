// Package identity derives deterministic document identities.
//
// An Assigner hashes a namespace together with a declared set of stable
// metadata fields into a version 5 (SHA-1, name-based) UUID. The same logical
// document always receives the same identity across runs, so uploading a
// corpus twice overwrites the existing objects instead of duplicating them.
//
// Callers must choose stable fields that are unique within their corpus:
// two documents that agree on every stable field share an identity and the
// later one replaces the earlier one in the backend.
package identity
