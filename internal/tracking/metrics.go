package tracking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the poll loop.
type Metrics struct {
	Polls          prometheus.Counter
	Untracked      prometheus.Counter
	SourceErrors   prometheus.Counter
	CallbackPanics prometheus.Counter
	PollSeconds    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Polls: f.NewCounter(prometheus.CounterOpts{
			Namespace: "motionscript",
			Subsystem: "tracking",
			Name:      "polls_total",
			Help:      "Controller polls completed.",
		}),
		Untracked: f.NewCounter(prometheus.CounterOpts{
			Namespace: "motionscript",
			Subsystem: "tracking",
			Name:      "untracked_polls_total",
			Help:      "Polls where the controller was not tracked.",
		}),
		SourceErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "motionscript",
			Subsystem: "tracking",
			Name:      "source_errors_total",
			Help:      "Source reads that failed for a reason other than no data.",
		}),
		CallbackPanics: f.NewCounter(prometheus.CounterOpts{
			Namespace: "motionscript",
			Subsystem: "tracking",
			Name:      "callback_panics_total",
			Help:      "State or button callbacks that panicked.",
		}),
		PollSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "motionscript",
			Subsystem: "tracking",
			Name:      "poll_seconds",
			Help:      "Time spent in one poll, excluding callbacks.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 8),
		}),
	}
}
