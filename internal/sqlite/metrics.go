package sqlite

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mesh-intelligence/notepad/pkg/types"
)

// Operation outcomes used as metric labels.
const (
	outcomeOK        = "ok"
	outcomeUserError = "user_error"
	outcomeStorage   = "storage_error"
	outcomeDetached  = "detached"
)

// metrics holds the per-backend collectors. They live on the backend's own
// registry so independent backends never share counters.
type metrics struct {
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	dropped       prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notepad_operations_total",
				Help: "Total number of provider operations",
			},
			[]string{"operation", "kind", "outcome"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notepad_operation_duration_seconds",
				Help:    "Duration of provider operations",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notepad_notifications_total",
				Help: "Total number of change notifications published",
			},
			[]string{"operation"},
		),
		dropped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "notepad_notifications_dropped_total",
				Help: "Change events dropped because a subscriber queue was full",
			},
		),
	}
}

// observe records one finished operation.
func (m *metrics) observe(op string, kind types.Kind, start time.Time, err error) {
	m.operations.WithLabelValues(op, kind.String(), outcome(err)).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, types.ErrDetached):
		return outcomeDetached
	case types.IsUserError(err):
		return outcomeUserError
	default:
		return outcomeStorage
	}
}
