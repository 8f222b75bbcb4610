package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-signup/pkg/signup"
)

// Recorder counts submit outcomes and times completed submissions. It
// implements signup.Observer.
type Recorder struct {
	submissions *prometheus.CounterVec
	duration    prometheus.Histogram
}

var _ signup.Observer = (*Recorder)(nil)

// NewRecorder builds the collectors and registers them on reg. A nil
// registerer leaves the collectors unregistered.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signup",
			Name:      "submissions_total",
			Help:      "Submit triggers by outcome (invalid, busy, succeeded, failed).",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "signup",
			Name:      "submission_duration_seconds",
			Help:      "Time spent waiting on the sign-up collaborator.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}),
	}
	if reg == nil {
		return r, nil
	}
	for _, c := range []prometheus.Collector{r.submissions, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveSubmit implements signup.Observer.
func (r *Recorder) ObserveSubmit(outcome signup.Outcome, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(string(outcome)).Inc()
	switch outcome {
	case signup.OutcomeSucceeded, signup.OutcomeFailed:
		r.duration.Observe(elapsed.Seconds())
	}
}

// Submissions exposes the outcome counter (used by tests and dashboards).
func (r *Recorder) Submissions() *prometheus.CounterVec {
	return r.submissions
}
