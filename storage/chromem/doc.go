// Package chromem implements storage.Index on chromem-go, an embedded
// vector database that keeps collections in memory and optionally persists
// every document as a file under a directory.
//
// chromem stores metadata as strings only, so scalar metadata values are
// formatted with strconv on the way in. Documents without a precomputed
// vector are embedded with the configured ai.Embedder; without one they are
// rejected individually.
package chromem
