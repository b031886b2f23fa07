// Package metrics provides Prometheus instrumentation for signal fetching,
// the result cache and background refresh.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricsNamespace = "fleet_intel"

// Metrics is nil-safe: every method is a no-op on a nil receiver so that
// components can run uninstrumented in tests.
type Metrics struct {
	FetchesTotal         *prometheus.CounterVec
	FetchDurationSeconds *prometheus.HistogramVec
	CacheLookupsTotal    *prometheus.CounterVec
	CacheClearsTotal     prometheus.Counter
	RefreshTasksTotal    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: "signals",
				Name:      "fetches_total",
				Help:      "Total number of signal fetches by signal and outcome",
			},
			[]string{"signal", "outcome"},
		),
		FetchDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: MetricsNamespace,
				Subsystem: "signals",
				Name:      "fetch_duration_seconds",
				Help:      "Duration of signal fetches",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"signal"},
		),
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Total number of cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
		CacheClearsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: "cache",
				Name:      "clears_total",
				Help:      "Total number of explicit clear-all operations",
			},
		),
		RefreshTasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: "refresh",
				Name:      "tasks_total",
				Help:      "Total number of background refresh tasks by status",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) ObserveFetch(signal, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(signal, outcome).Inc()
	m.FetchDurationSeconds.WithLabelValues(signal).Observe(duration.Seconds())
}

func (m *Metrics) ObserveCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) ObserveCacheClear() {
	if m == nil {
		return
	}
	m.CacheClearsTotal.Inc()
}

func (m *Metrics) ObserveRefreshTask(status string) {
	if m == nil {
		return
	}
	m.RefreshTasksTotal.WithLabelValues(status).Inc()
}
