package domain

import (
	"errors"
	"fmt"
)

// Poll lifecycle errors
var (
	ErrValidation        = errors.New("validation failed")
	ErrAccessDenied      = errors.New("access denied")
	ErrNotFound          = errors.New("not found")
	ErrPollNotFound      = fmt.Errorf("poll %w", ErrNotFound)
	ErrNotActive         = errors.New("poll is not active")
	ErrExpired           = errors.New("poll has expired and can no longer accept responses")
	ErrDuplicateResponse = errors.New("you have already submitted a response to this poll")
	ErrNotLive           = errors.New("admin must be joined to control questions")
	ErrBoundary          = errors.New("question navigation boundary reached")
	ErrInvalidIndex      = errors.New("invalid question index")
	ErrSessionSuperseded = errors.New("admin session has been superseded")
)

// ErrParticipantNotFound is returned when responding without joining first.
// It matches ErrNotFound.
var ErrParticipantNotFound = fmt.Errorf("participant %w: please join the poll first", ErrNotFound)

// ValidationError describes malformed input and matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// BoundaryError reports which end of the question list was hit.
type BoundaryError struct {
	Last bool
}

func (e *BoundaryError) Error() string {
	if e.Last {
		return "already at the last question"
	}
	return "already at the first question"
}

func (e *BoundaryError) Unwrap() error { return ErrBoundary }
