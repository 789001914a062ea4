package session

import (
	"errors"
	"fmt"
)

// Validation errors. They are returned before any backend call and leave the
// state untouched.
var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrSubjectRequired = errors.New("subject is required")
	ErrNameRequired    = errors.New("project name is required")
	ErrInvalidDuration = errors.New("timer duration must not be negative")
	ErrInvalidExam     = errors.New("exam confidence must be between 0 and 100 and duration must not be negative")
	ErrProjectNotFound = errors.New("project not found")
)

// ErrReplyPending is returned by a send made while the previous one is still
// waiting for its reply. Nothing is sent and the input stays staged.
var ErrReplyPending = errors.New("a reply is still pending")

// ErrNotConfirmed is returned by destructive actions called without the
// user's confirmation.
var ErrNotConfirmed = errors.New("action requires confirmation")

// Calendar preconditions surfaced to the user.
var (
	ErrCalendarNotConnected = errors.New("calendar is not connected")
	ErrNoSchedule           = errors.New("no generated schedule in the conversation")
)

// BackendError wraps a failed backend call made by a flow.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func wrapBackend(op string, err error) error {
	return &BackendError{Op: op, Err: err}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrEmptyMessage, ErrSubjectRequired, ErrNameRequired,
		ErrInvalidDuration, ErrInvalidExam, ErrProjectNotFound,
		ErrCalendarNotConnected, ErrNoSchedule,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
