package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks requests rejected before any job was enqueued,
	// such as disabled custom folders or path traversal attempts.
	ErrValidation = errors.New("validation error")
	// ErrUnsupported marks URLs the engine classified into something the
	// orchestrator cannot turn into a download.
	ErrUnsupported = errors.New("unsupported resource")
	// ErrNotFound marks operations referencing a job id absent from the
	// store the operation targets.
	ErrNotFound = errors.New("not found")
)

// wrap tags err (or a bare message) with one of the sentinel markers so
// callers can classify failures with errors.Is.
func wrap(marker error, operation, message string, err error) error {
	detail := message
	if operation = strings.TrimSpace(operation); operation != "" {
		if detail != "" {
			detail = operation + ": " + detail
		} else {
			detail = operation
		}
	}
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		if detail != "" {
			return fmt.Errorf("%w: %s: %w", marker, detail, err)
		}
		return fmt.Errorf("%w: %w", marker, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Result is the synchronous outcome of an Add, StartPending, Cancel, or
// Clear call. Status is "ok" when every requested item was accepted and
// "error" otherwise, with Msg carrying the aggregated reasons.
type Result struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
}

// OK reports whether the operation succeeded for every requested item.
func (r Result) OK() bool { return r.Status == "ok" }

func okResult() Result { return Result{Status: "ok"} }

func errorResult(msg string) Result { return Result{Status: "error", Msg: msg} }

// mergeResults folds per-item outcomes into one Result: any error makes
// the aggregate an error, with the individual messages concatenated in
// order. Playlist expansion relies on this to report partial failures.
func mergeResults(results []Result) Result {
	msgs := make([]string, 0, len(results))
	for _, res := range results {
		if !res.OK() && res.Msg != "" {
			msgs = append(msgs, res.Msg)
		}
	}
	if len(msgs) == 0 {
		return okResult()
	}
	return errorResult(strings.Join(msgs, "; "))
}
