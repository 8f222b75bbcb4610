package signup

import (
	"errors"
	"strings"
)

var (
	// ErrUnknownField is returned when a field name is not one of the form keys.
	ErrUnknownField = errors.New("unknown field")
	// ErrValueType is returned when a value does not match the field kind.
	ErrValueType = errors.New("invalid value type")
	// ErrSubmitInFlight is returned by operations that cannot run while a
	// submission is pending.
	ErrSubmitInFlight = errors.New("submission in flight")
	// ErrSubmissionFailed matches every SubmissionError.
	ErrSubmissionFailed = errors.New("submission failed")
	// ErrInvalidRule is returned when a rule table cannot be compiled.
	ErrInvalidRule = errors.New("invalid rule")
)

// SubmissionError carries the human readable message surfaced as the form's
// general error.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e == nil {
		return ErrSubmissionFailed.Error()
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ErrSubmissionFailed.Error()
}

func (e *SubmissionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports ErrSubmissionFailed as a match so callers can test the kind
// without caring about the concrete message.
func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmissionFailed
}

// failureMessage extracts the message a failed submission should display.
func failureMessage(err error) string {
	if err == nil {
		return ""
	}
	var subErr *SubmissionError
	if errors.As(err, &subErr) && subErr != nil {
		return subErr.Error()
	}
	return err.Error()
}
