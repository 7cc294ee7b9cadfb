// Package metrics records facade operation outcomes in Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/modhub/internal/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is what the facade reports to. Nop satisfies it for callers that
// do not export metrics.
type Recorder interface {
	Observe(op string, took time.Duration, err error)
}

type Metrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modhub",
			Name:      "operations_total",
			Help:      "Facade operations by outcome.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modhub",
			Name:      "operation_duration_seconds",
			Help:      "Facade operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{m.ops, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Observe(op string, took time.Duration, err error) {
	m.ops.WithLabelValues(op, Result(err)).Inc()
	m.duration.WithLabelValues(op).Observe(took.Seconds())
}

// Result maps an error to a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrValidation):
		return "validation"
	case errors.Is(err, common.ErrConflict):
		return "conflict"
	case errors.Is(err, common.ErrNotFound):
		return "not_found"
	case errors.Is(err, common.ErrAuthenticationFailed):
		return "auth_failed"
	case errors.Is(err, common.ErrInvalidSession):
		return "invalid_session"
	case errors.Is(err, common.ErrForbidden):
		return "forbidden"
	case errors.Is(err, common.ErrStorageUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

type nop struct{}

func (nop) Observe(string, time.Duration, error) {}

// Nop discards every observation.
func Nop() Recorder { return nop{} }
