package signup

import (
	"log/slog"
	"time"
)

// Observer receives submit outcomes. pkg/metrics provides a Prometheus
// implementation.
type Observer interface {
	ObserveSubmit(outcome Outcome, elapsed time.Duration)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRules overrides the rule table used for validation.
func WithRules(rules RuleSet) Option {
	return func(c *Controller) {
		c.rules = rules
	}
}

// WithObserver registers an outcome observer.
func WithObserver(observer Observer) Option {
	return func(c *Controller) {
		c.observer = observer
	}
}

// WithInitialValues seeds the form. Dirty flags are computed against these
// values and Reset returns to them.
func WithInitialValues(values Values) Option {
	return func(c *Controller) {
		c.initial = values
	}
}

// WithClock overrides the time source used to measure submissions.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}
