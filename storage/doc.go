// Package storage defines the contract between the ingestion pipeline and
// the vector index backends it uploads into.
//
// The pipeline only ever talks to an Index obtained from a Connector, so
// different backends (BadgerDB, chromem-go, Milvus) can be used
// interchangeably, and tests can substitute storage/mock.
//
// # Constructor Return Type Pattern
//
// Backend constructors that open sessions return the storage.Index interface:
//
//	index, err := connector.Connect(ctx)  // returns storage.Index
//
// Concrete types stay available inside each backend package for tests.
//
// # Upsert Contract
//
// Upsert is keyed by core.ID, so uploading the same document twice replaces
// the stored object. It returns one core.Outcome per submitted object, in
// submission order. A returned error is reserved for failures of the call as
// a whole (network, closed session); per-object rejections such as a schema
// mismatch are reported as failed outcomes.
//
// # Serialization
//
// Backends that persist objects themselves use the MUS codec in this
// package (MarshalObject, MarshalCollection).
//
// # Thread Safety
//
// All Index implementations must be safe for concurrent use from multiple
// goroutines; the pipeline may submit batches in parallel.
package storage
