// Package engine defines the contract the orchestrator and executor need
// from the external fetch/extraction engine: flat URL classification and
// the actual fetch with streamed progress. Implementations live in
// subpackages and are injected; the core never depends on a concrete one.
package engine
