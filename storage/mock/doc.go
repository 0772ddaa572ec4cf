// Package mock provides a test double for storage.Index.
//
// MockIndex keeps uploaded objects in memory so tests can inspect exactly
// what reached the backend, and exposes function fields for injecting
// transport failures or per-object rejections.
package mock
