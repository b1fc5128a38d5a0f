package booking

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuthenticationRequired = errors.New("sign in to book a table")
	ErrDateOutOfRange         = errors.New("date is outside the booking window")
	ErrNoDate                 = errors.New("choose a date first")
	ErrNoTime                 = errors.New("choose a time first")
	ErrSlotUnavailable        = errors.New("time slot not available")
	ErrTransientSubmission    = errors.New("booking failed")
)

// ValidationError reports mandatory draft fields that are missing, either
// found locally or signalled by the booking endpoint.
type ValidationError struct {
	Missing  []string
	Rejected bool
}

func (e *ValidationError) Error() string {
	if len(e.Missing) == 0 {
		return "marked fields are mandatory"
	}
	return fmt.Sprintf("marked fields are mandatory: %s", strings.Join(e.Missing, ", "))
}

// SubmissionError is a failed round trip to the booking endpoint. The draft
// is kept so the caller may retry.
type SubmissionError struct {
	Status int
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("booking failed (status=%d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("booking failed (status=%d)", e.Status)
}

func (e *SubmissionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransientSubmission}
	}
	return []error{ErrTransientSubmission, e.Err}
}
