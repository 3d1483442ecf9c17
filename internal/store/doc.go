// Package store provides the durable ordered key-to-job mapping backing
// the orchestrator's queue, pending, and done sets. One SQLite database
// holds all three buckets; each bucket mirrors its rows into an ordered
// in-memory map on open and persists synchronously on every mutation.
// Writes are fail-closed: when the database rejects a mutation the
// in-memory view is left untouched and the caller observes the error.
package store
