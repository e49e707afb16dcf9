package sched

import (
	"errors"
	"fmt"
)

// StepLimitError is returned by Virtual when a single Flush, Advance or
// RunUntilIdle call executes more tasks than the configured limit.
//
// It catches runaway pipelines (an infinite sequence drained inside a
// test, ticks without a limit passed to RunUntilIdle) that would otherwise
// hang.
type StepLimitError struct {
	Steps int // Number of tasks executed before giving up
	Limit int // Configured limit
}

// Error implements the error interface.
func (e *StepLimitError) Error() string {
	return fmt.Sprintf("virtual scheduler exceeded step limit: %d steps > %d limit", e.Steps, e.Limit)
}

// IsStepLimitError returns true if the error is a StepLimitError.
// Uses errors.As to handle wrapped errors.
func IsStepLimitError(err error) bool {
	var se *StepLimitError
	return errors.As(err, &se)
}
