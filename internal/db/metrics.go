// ABOUTME: Prometheus instrumentation for statements executed through the gateway
// ABOUTME: Counts statements by backend/kind/outcome and observes their latency

package db

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway collectors. A nil *Metrics records nothing.
type Metrics struct {
	statements *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the gateway collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		statements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "horoscope",
				Name:      "db_statements_total",
				Help:      "Statements executed through the data gateway.",
			},
			[]string{"backend", "kind", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "horoscope",
				Name:      "db_statement_duration_seconds",
				Help:      "Latency of statements executed through the data gateway.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend", "kind"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.statements, m.duration)
	}
	return m
}

// observe records one statement.
func (m *Metrics) observe(backend Backend, read bool, started time.Time, err error) {
	if m == nil {
		return
	}
	kind := "write"
	if read {
		kind = "read"
	}
	outcome := "ok"
	switch {
	case errors.Is(err, ErrDuplicateKey):
		outcome = "duplicate_key"
	case errors.Is(err, ErrForeignKey):
		outcome = "foreign_key"
	case err != nil:
		outcome = "error"
	}
	m.statements.WithLabelValues(string(backend), kind, outcome).Inc()
	m.duration.WithLabelValues(string(backend), kind).Observe(time.Since(started).Seconds())
}
