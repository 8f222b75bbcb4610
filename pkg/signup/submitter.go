package signup

import (
	"context"
	"fmt"
	"time"
)

// SignUpRequest is the value subset handed to the submission collaborator.
type SignUpRequest struct {
	Email string `json:"email"`
}

// Submitter performs the sign-up call. A nil error is success; any error is a
// failure whose message becomes the form's general error.
type Submitter interface {
	SignUp(ctx context.Context, req SignUpRequest) error
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, req SignUpRequest) error

// SignUp calls fn.
func (fn SubmitterFunc) SignUp(ctx context.Context, req SignUpRequest) error {
	return fn(ctx, req)
}

const (
	DefaultSubmitDelay    = time.Second
	DefaultRejectedEmail  = "A@a.com"
	DefaultRejectedReason = "That email address looks fake."
)

// SimulatedSubmitter stands in for a sign-up backend: it waits Delay and then
// rejects any address listed in Rejected (exact match).
type SimulatedSubmitter struct {
	Delay    time.Duration
	Rejected []string
	Reason   string
}

// NewSimulatedSubmitter returns a submitter with the given delay. When no
// rejected addresses are supplied DefaultRejectedEmail is used.
func NewSimulatedSubmitter(delay time.Duration, rejected ...string) *SimulatedSubmitter {
	if len(rejected) == 0 {
		rejected = []string{DefaultRejectedEmail}
	}
	return &SimulatedSubmitter{
		Delay:    delay,
		Rejected: append([]string(nil), rejected...),
		Reason:   DefaultRejectedReason,
	}
}

// SignUp implements Submitter.
func (s *SimulatedSubmitter) SignUp(ctx context.Context, req SignUpRequest) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("signup: simulated submit: %w", ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return fmt.Errorf("signup: simulated submit: %w", err)
	}

	for _, rejected := range s.Rejected {
		if req.Email == rejected {
			reason := s.Reason
			if reason == "" {
				reason = DefaultRejectedReason
			}
			return &SubmissionError{Message: reason}
		}
	}
	return nil
}
