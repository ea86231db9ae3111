package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carprice/internal/validation"
)

// ErrBusy indicates no predictor slot became free within the queue timeout.
var ErrBusy = errors.New("predictor busy")

// ProcessError indicates the predictor exited non-zero or could not be started.
// Stderr is for server-side logs only.
type ProcessError struct {
	ExitCode int // -1 when the process never ran to completion
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	return fmt.Errorf("predictor exited with code %d: %w", e.ExitCode, e.Err).Error()
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// FormatError indicates the predictor exited 0 but its stdout was not a JSON
// object with a numeric predicted_price. Stdout is for server-side logs only.
type FormatError struct {
	Stdout string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Errorf("invalid predictor output: %w", e.Err).Error()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates the predictor was killed after exceeding its deadline.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Errorf("predictor timed out after %s: %w", e.Timeout, e.Err).Error()
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// OutcomeLabel maps a Predict error to a metric and span label.
func OutcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	var procErr *ProcessError
	if errors.As(err, &procErr) {
		return "process_error"
	}
	var formatErr *FormatError
	if errors.As(err, &formatErr) {
		return "format_error"
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return "timeout"
	}
	if errors.Is(err, ErrBusy) {
		return "busy"
	}
	var selErr *validation.SelectionError
	if errors.As(err, &selErr) || errors.Is(err, validation.ErrUnsafeArgument) {
		return "invalid"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return "other"
}
