// Package ingest uploads a stream of documents into a vector index collection.
//
// A run pulls documents from a source, gives each a stable identity, groups
// them into batches and submits every batch through a retry coordinator that
// backs off exponentially and shrinks the batch size while the backend keeps
// failing. Documents that never succeed are recorded as permanently failed
// with the reason of their last failure; nothing is silently dropped.
//
// Progress is tracked as a PipelineState whose counters always satisfy
// Total == Sent + Pending + PermanentlyFailed. Cancelling the context stops
// the run between batches and leaves unsent documents pending.
package ingest
