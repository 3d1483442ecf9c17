// Package executor runs a single job to its terminal status. The fetch
// itself runs in an isolated goroutine that streams raw events through a
// bounded channel; the update pump owns the job descriptor and translates
// events into descriptor mutations and Updated callbacks. After a
// successful fetch the worker side runs the metadata pipeline: bounded
// retries for each side-car component, transcript extraction, the
// consolidated metadata document, and the normalization pass.
package executor
