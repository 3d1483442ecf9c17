package engine

import "fmt"

// Error wraps a failure reported by the external engine. The message is
// surfaced verbatim on the job descriptor.
type Error struct {
	Op  string
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an engine error for the given operation.
func NewError(op, msg string, err error) *Error {
	return &Error{Op: op, Msg: msg, Err: err}
}
