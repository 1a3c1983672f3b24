package journal

import (
	"errors"
	"fmt"
)

type (
	// SequenceTooOldError is returned when a read starts below the oldest
	// entry a bounded Journal still retains
	SequenceTooOldError struct {
		Requested int64
		Oldest    int64
	}

	// HandlerError wraps a failure returned by a Tail handler for the item
	// at Sequence
	HandlerError struct {
		Err      error
		Sequence int64
	}
)

var (
	// ErrNegativeMaxItems is returned when a read asks for fewer than zero
	// items
	ErrNegativeMaxItems = errors.New("max items cannot be negative")

	// ErrNegativeSequence is returned when a read starts at a negative
	// sequence
	ErrNegativeSequence = errors.New("sequence cannot be negative")

	// ErrSequenceTooOld matches any SequenceTooOldError via errors.Is
	ErrSequenceTooOld = errors.New("sequence too old")

	// ErrUnknownKind is returned when a Kind name or value is not recognized
	ErrUnknownKind = errors.New("unknown entry kind")

	// ErrHandlerRequired is returned when a Tail is created without a handler
	ErrHandlerRequired = errors.New("tail handler is required")

	// ErrInvalidCapacity is returned for negative capacity settings
	ErrInvalidCapacity = errors.New("capacity cannot be negative")
)

func (e *SequenceTooOldError) Error() string {
	return fmt.Sprintf(
		"sequence too old: requested %d, but oldest retained is %d",
		e.Requested, e.Oldest,
	)
}

func (e *SequenceTooOldError) Is(target error) bool {
	return target == ErrSequenceTooOld
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler failed at sequence %d: %v", e.Sequence, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
