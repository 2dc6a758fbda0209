package exitcodes

import (
	"context"
	"errors"

	"nmsweep/internal/fsops"
)

// Exit codes for nmsweep
// These codes form the contract with scripts wrapping the CLI
const (
	Success         = 0 // Successful execution
	InvalidConfig   = 2 // Configuration file or arguments invalid
	SafetyViolation = 3 // Input rejected by validation
	RuntimeError    = 4 // Runtime error during execution
	PartialFailure  = 5 // At least one folder of a delete batch was not removed
	Interrupted     = 130
)

// ExitError carries an exit code through cobra's error return
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status"
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WithCode attaches code to err
func WithCode(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// FromError picks the exit code for err
func FromError(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return Success
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, context.Canceled):
		return Interrupted
	case errors.Is(err, fsops.ErrValidation):
		return SafetyViolation
	}
	return RuntimeError
}
