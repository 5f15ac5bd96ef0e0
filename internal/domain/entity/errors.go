package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidSelector = errors.New("invalid selector")
	ErrInvalidConfig   = errors.New("invalid extraction config")
	ErrNoContainer     = errors.New("no comment container found")
	ErrCancelled       = errors.New("extraction cancelled")
	ErrElementGone     = errors.New("element no longer attached")
	ErrOracleClosed    = errors.New("oracle channel closed")
)

// ExtractionError is the fatal outcome of a run where no tier produced a
// container. It unwraps to ErrNoContainer.
type ExtractionError struct {
	Domain   string
	Attempts []TierAttempt
}

func (e *ExtractionError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Strategy, a.Reason))
	}
	return fmt.Sprintf("%s for %s (%s)", ErrNoContainer, e.Domain, strings.Join(parts, "; "))
}

func (e *ExtractionError) Unwrap() error {
	return ErrNoContainer
}
