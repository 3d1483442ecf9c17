// Package orchestrator owns the three durable job stores and the
// single-consumer scheduling loop. Callers add URLs; the orchestrator
// classifies them through the fetch engine, expands playlists, enqueues
// job descriptors, and runs them one at a time through the executor,
// forwarding every lifecycle event to the notifier. All store writes
// funnel through the orchestrator's mutex: one writer, many readers.
package orchestrator
