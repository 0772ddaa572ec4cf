// Package milvus implements storage.Index on a Milvus server.
//
// Each collection has four fields: a VarChar primary key holding the
// document identity, the content, the metadata as a JSON column and the
// float vector. Uploads use Upsert, so re-sending a document replaces it.
//
// Milvus validates a whole insert at once. Objects that would make the
// request invalid (no vector, wrong dimension, oversized content, schema
// mismatch) are rejected client side before the request is sent, so one bad
// document never fails its neighbours.
package milvus
