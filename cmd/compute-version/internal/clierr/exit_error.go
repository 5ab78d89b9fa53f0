// SPDX-License-Identifier: AGPL-3.0-or-later

// Package clierr maps failures of a compute-version run to process exit codes.
package clierr

import "errors"

// Code is a process exit status. Every resolution path, including the
// "nothing found" fallbacks, exits with ExitOK.
type Code int

const (
	ExitOK         Code = 0
	ExitFailure    Code = 1
	ExitUsage      Code = 2 // bad arguments, flags or configuration
	ExitRepository Code = 3 // repository unreadable under --strict
)

func (c Code) String() string {
	switch c {
	case ExitOK:
		return "ok"
	case ExitUsage:
		return "usage"
	case ExitRepository:
		return "repository"
	default:
		return "failure"
	}
}

// ExitError records the step that failed, why, and how the process exits.
type ExitError struct {
	Code Code
	Op   string
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// Usage reports that op failed because of how the tool was invoked.
func Usage(op string, err error) error { return wrap(ExitUsage, op, err) }

// Repository reports that op failed to read the repository.
func Repository(op string, err error) error { return wrap(ExitRepository, op, err) }

func wrap(code Code, op string, err error) error {
	if code == ExitOK {
		code = ExitFailure
	}
	return &ExitError{Code: code, Op: op, Err: err}
}

// ExitCodeOf returns the exit status for err: ExitOK for nil, the code of the
// outermost ExitError in the chain, ExitFailure otherwise.
func ExitCodeOf(err error) Code {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}
