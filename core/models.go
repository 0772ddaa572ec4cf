package core

import (
	"encoding/binary"
	"slices"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is the deterministic identity of a document in a collection.
// It is a 16 byte UUID so it can be used as a primary key by any backend.
type ID uuid.UUID

// String returns the canonical UUID text form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the ID has not been assigned.
func (id ID) IsZero() bool {
	return id == ID{}
}

// ParseID parses the canonical UUID text form produced by String.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, err
	}
	return ID(u), nil
}

// Checksum returns a 64 bit BLAKE2b digest of the content.
// Backends store it next to the document to tell an unchanged re-upload
// from a replacement.
func Checksum(content string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(content))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// Metadata maps caller-defined keys to scalar values.
// Supported value types are string, bool, int, int64 and float64.
type Metadata map[string]any

// Keys returns the metadata keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns a shallow copy of the metadata.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Document is the unit of ingestion produced by a source.
type Document struct {
	Content  string
	Metadata Metadata
}

// Object is a document paired with its identity, ready to be uploaded.
type Object struct {
	ID       ID
	Document Document
	Vector   []float32 // Optional precomputed embedding
	Checksum uint64
}

// NewObject pairs a document with its identity and content checksum.
func NewObject(id ID, doc Document) *Object {
	return &Object{
		ID:       id,
		Document: doc,
		Checksum: Checksum(doc.Content),
	}
}

// OutcomeStatus is the result of submitting a single document.
type OutcomeStatus int

const (
	// OutcomeSucceeded means the backend acknowledged the document.
	OutcomeSucceeded OutcomeStatus = iota + 1
	// OutcomeFailed means the backend rejected the document or never saw it.
	OutcomeFailed
)

// String returns a lowercase name for the status.
func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the per-document result of an upload call.
// Outcomes correspond positionally to the submitted batch.
type Outcome struct {
	Status OutcomeStatus
	Reason string // Set when Status is OutcomeFailed
}

// Succeeded returns a successful outcome.
func Succeeded() Outcome {
	return Outcome{Status: OutcomeSucceeded}
}

// Failed returns a failed outcome carrying the reason.
func Failed(reason string) Outcome {
	return Outcome{Status: OutcomeFailed, Reason: reason}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Status == OutcomeSucceeded
}

// FailedDocument records a document that reached the terminal failed state.
type FailedDocument struct {
	ID       ID
	Document Document
	Reason   string
	Attempts int // Upload attempts made; 0 when rejected before upload
}

// PipelineState holds the counters of a single ingestion run.
//
// Total == Sent + Pending + PermanentlyFailed holds for every snapshot taken
// after the run has started.
type PipelineState struct {
	Total             int
	Sent              int
	Pending           int
	PermanentlyFailed int
	Failures          []FailedDocument
	Interrupted       string // Why the run stopped early, empty when it ran to completion
}

// Consistent reports whether the counters satisfy the sum invariant.
func (s *PipelineState) Consistent() bool {
	return s.Total == s.Sent+s.Pending+s.PermanentlyFailed
}

// Complete reports whether every document was sent.
func (s *PipelineState) Complete() bool {
	return s.Pending == 0 && s.PermanentlyFailed == 0 && s.Interrupted == ""
}
