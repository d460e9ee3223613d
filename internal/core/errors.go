package core

import "errors"

// Process exit codes. Fixed contract with CI callers.
const (
	ExitSuccess     = 0
	ExitBlocked     = 1
	ExitExecFailure = 2
)

// BlockedError signals a known, user-actionable gate that was not satisfied:
// an unmappable surviving P0/P1, the inline cap exceeded, a sandbox
// violation. The run produced a usable report but delivery was gated.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string { return e.Reason }

// Blocked constructs a BlockedError.
func Blocked(reason string) error { return &BlockedError{Reason: reason} }

// ExecFailureError signals invalid input or a runtime failure: schema
// violations, malformed reviewer output, unavailable required input.
type ExecFailureError struct {
	Reason string
	Err    error
}

func (e *ExecFailureError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *ExecFailureError) Unwrap() error { return e.Err }

// ExecFailure constructs an ExecFailureError.
func ExecFailure(reason string) error { return &ExecFailureError{Reason: reason} }

// ExecFailureWrap constructs an ExecFailureError wrapping a cause.
func ExecFailureWrap(reason string, err error) error {
	return &ExecFailureError{Reason: reason, Err: err}
}

// ExitCodeFor maps an error to the process exit contract. Blocked wins over
// nothing; any non-nil error that is not Blocked is an execution failure.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return ExitBlocked
	}
	return ExitExecFailure
}
