package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies the result of a Submit call.
type Outcome string

const (
	// OutcomeInvalid means validation blocked the submission.
	OutcomeInvalid Outcome = "invalid"
	// OutcomeBusy means a submission was already in flight; nothing changed.
	OutcomeBusy Outcome = "busy"
	// OutcomeSucceeded means the submitter accepted the request.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeFailed means the submitter rejected the request.
	OutcomeFailed Outcome = "failed"
)

// Result describes a Submit call.
type Result struct {
	Outcome   Outcome
	AttemptID string
	// Values holds the values that were submitted (set for succeeded and
	// failed outcomes).
	Values   Values
	Snapshot Snapshot
}

// Controller owns the sign-up form state. It is safe for concurrent use; the
// lock is never held while the submitter runs.
type Controller struct {
	mu sync.Mutex

	submitter Submitter
	rules     RuleSet
	logger    *slog.Logger
	observer  Observer
	now       func() time.Time

	initial      Values
	values       Values
	touched      map[Field]bool
	errors       Errors
	submitting   bool
	generalError string
	submitted    bool
	attempts     int

	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// New constructs a controller bound to submitter.
func New(submitter Submitter, options ...Option) *Controller {
	c := &Controller{
		submitter:   submitter,
		rules:       DefaultRules(),
		logger:      slog.Default(),
		now:         time.Now,
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	c.values = c.initial
	c.touched = make(map[Field]bool, len(fieldSpecs))
	c.errors = c.rules.Validate(c.values)
	return c
}

// SetValue stores value for field and revalidates the whole form.
func (c *Controller) SetValue(field Field, value any) error {
	c.mu.Lock()
	next, err := c.values.With(field, value)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.values = next
	c.errors = c.rules.Validate(c.values)
	c.unlockAndPublish()
	return nil
}

// MarkTouched flags field as visited so its error becomes visible.
func (c *Controller) MarkTouched(field Field) error {
	if _, ok := SpecFor(field); !ok {
		return fmt.Errorf("signup: %w: %q", ErrUnknownField, field)
	}
	c.mu.Lock()
	c.touched[field] = true
	c.unlockAndPublish()
	return nil
}

// Submit validates the form and, when valid, calls the submitter once. A
// second call while a submission is pending returns OutcomeBusy without side
// effects. The returned error is non-nil only for OutcomeFailed and matches
// ErrSubmissionFailed.
func (c *Controller) Submit(ctx context.Context) (Result, error) {
	return c.submit(ctx, nil)
}

// SubmitValues replaces every value, marks all fields touched and submits, in
// one step. When a submission is already in flight nothing is changed and
// OutcomeBusy is returned.
func (c *Controller) SubmitValues(ctx context.Context, values Values) (Result, error) {
	return c.submit(ctx, func() {
		c.values = values
		for _, spec := range fieldSpecs {
			c.touched[spec.Name] = true
		}
	})
}

// submit runs the submit trigger. apply, when set, mutates state under the
// same lock that checks for an in-flight submission.
func (c *Controller) submit(ctx context.Context, apply func()) (result Result, err error) {
	if ctx == nil {
		return Result{}, errors.New("signup: context is required")
	}

	c.mu.Lock()
	if c.submitting {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.observe(OutcomeBusy, 0)
		return Result{Outcome: OutcomeBusy, Snapshot: snap}, nil
	}
	if apply != nil {
		apply()
	}

	c.errors = c.rules.Validate(c.values)
	if len(c.errors) > 0 {
		for _, spec := range fieldSpecs {
			c.touched[spec.Name] = true
		}
		snap := c.unlockAndPublish()
		c.logger.Debug("signup: submit blocked by validation", slog.Int("errors", len(snap.Errors)))
		c.observe(OutcomeInvalid, 0)
		return Result{Outcome: OutcomeInvalid, Snapshot: snap}, nil
	}

	c.submitting = true
	c.submitted = false
	c.generalError = ""
	c.attempts++
	values := c.values
	attemptID := uuid.NewString()
	started := c.now()

	// registered before the busy snapshot is published so the in-flight flag
	// is cleared whatever happens from here on
	var callErr error
	defer func() {
		if r := recover(); r != nil {
			callErr = fmt.Errorf("signup: submitter panic: %v", r)
		}
		result, err = c.complete(attemptID, values, started, callErr)
	}()
	c.unlockAndPublish()

	c.logger.Info("signup: submitting", slog.String("attempt", attemptID))
	if c.submitter == nil {
		callErr = errors.New("signup: submitter is not configured")
		return
	}
	callErr = c.submitter.SignUp(ctx, SignUpRequest{Email: values.Email})
	return
}

func (c *Controller) complete(attemptID string, values Values, started time.Time, callErr error) (Result, error) {
	elapsed := c.now().Sub(started)

	c.mu.Lock()
	c.submitting = false
	outcome := OutcomeSucceeded
	if callErr != nil {
		outcome = OutcomeFailed
		c.generalError = failureMessage(callErr)
	} else {
		c.submitted = true
	}
	snap := c.unlockAndPublish()

	c.observe(outcome, elapsed)
	result := Result{
		Outcome:   outcome,
		AttemptID: attemptID,
		Values:    values,
		Snapshot:  snap,
	}
	if callErr != nil {
		c.logger.Warn("signup: submission failed",
			slog.String("attempt", attemptID),
			slog.Duration("elapsed", elapsed),
			slog.String("error", snap.GeneralError),
		)
		return result, &SubmissionError{Message: snap.GeneralError, Err: callErr}
	}
	c.logger.Info("signup: submission succeeded",
		slog.String("attempt", attemptID),
		slog.Duration("elapsed", elapsed),
	)
	return result, nil
}

// Reset returns the form to its initial values and clears touched flags and
// the general error.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return fmt.Errorf("signup: reset: %w", ErrSubmitInFlight)
	}
	c.values = c.initial
	c.touched = make(map[Field]bool, len(fieldSpecs))
	c.errors = c.rules.Validate(c.values)
	c.generalError = ""
	c.submitted = false
	c.unlockAndPublish()
	return nil
}

// Snapshot returns an immutable copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every mutation. The
// returned function removes the subscription.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Values:       c.values,
		Touched:      cloneFlags(c.touched),
		Dirty:        dirtyFlags(c.initial, c.values),
		Errors:       c.errors.Clone(),
		IsSubmitting: c.submitting,
		GeneralError: c.generalError,
		Submitted:    c.submitted,
		Attempts:     c.attempts,
	}
}

// unlockAndPublish snapshots the state, releases the lock and delivers the
// snapshot to subscribers. Must be called with c.mu held.
func (c *Controller) unlockAndPublish() Snapshot {
	snap := c.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(c.subscribers))
	for id := 0; id < c.nextSubID; id++ {
		if fn, ok := c.subscribers[id]; ok {
			subs = append(subs, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range subs {
		c.deliver(fn, snap)
	}
	return snap
}

// deliver calls a subscriber, logging instead of propagating its panic.
func (c *Controller) deliver(fn func(Snapshot), snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("signup: subscriber panic", slog.Any("panic", r))
		}
	}()
	fn(snap)
}

func (c *Controller) observe(outcome Outcome, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveSubmit(outcome, elapsed)
}
