package timeseries

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRange is returned when a series window ends before it starts.
	ErrEmptyRange = errors.New("end period precedes start period")
	// ErrInsufficientHistory is returned when a series is too short for the
	// requested operation (seasonal models, decomposition).
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrInvalidSplit is returned when a train/test split would leave either
	// side empty.
	ErrInvalidSplit = errors.New("invalid train/test split")
)

// EmptyRangeError carries the offending window.
type EmptyRangeError struct {
	Start Period
	End   Period
}

func (e *EmptyRangeError) Error() string {
	return fmt.Sprintf("empty range %s..%s: %v", e.Start, e.End, ErrEmptyRange)
}

func (e *EmptyRangeError) Unwrap() error {
	return ErrEmptyRange
}

// InsufficientHistoryError reports how many observations an operation
// needed and how many it got.
type InsufficientHistoryError struct {
	Op   string
	Need int
	Have int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%s: need at least %d observations, have %d", e.Op, e.Need, e.Have)
}

func (e *InsufficientHistoryError) Unwrap() error {
	return ErrInsufficientHistory
}

// RequireHistory returns an InsufficientHistoryError when have < need.
func RequireHistory(op string, need, have int) error {
	if have < need {
		return &InsufficientHistoryError{Op: op, Need: need, Have: have}
	}
	return nil
}
