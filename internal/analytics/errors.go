package analytics

import (
	"errors"
	"fmt"
)

// InvalidRangeError reports a request the engine refuses to compute: a start
// date after the end date, an unknown granularity, or filters that name no
// entities where at least one is required.
type InvalidRangeError struct {
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: %s", e.Reason)
}

// InsufficientDataError reports that a series could not be constructed at all.
// Sparse data never produces this error; it lowers forecast confidence instead.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s", e.Reason)
}

func invalidRange(format string, args ...any) error {
	return &InvalidRangeError{Reason: fmt.Sprintf(format, args...)}
}

func insufficientData(format string, args ...any) error {
	return &InsufficientDataError{Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidRange reports whether err wraps an *InvalidRangeError.
func IsInvalidRange(err error) bool {
	var target *InvalidRangeError
	return errors.As(err, &target)
}

// IsInsufficientData reports whether err wraps an *InsufficientDataError.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}
