// Package notify defines the observer contract the orchestrator invokes on
// every job lifecycle event, plus the bundled implementations: a no-op, a
// structured-log observer, an ntfy push observer, and a fan-out combinator.
// Callbacks for one job id are always invoked in lifecycle order because
// the orchestrator serializes them.
package notify
