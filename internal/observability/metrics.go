// Package observability holds the Prometheus instrumentation of the
// pipeline and the optional HTTP listener that exposes it.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters for one pipeline process.
type Metrics struct {
	RecordsNormalized prometheus.Counter
	RecordsRejected   prometheus.Counter
	EntitiesMerged    prometheus.Counter

	GeocodeLookups     *prometheus.CounterVec // labels: strategy, outcome={success,not_found,error}
	GeocodeCacheHits   prometheus.Counter
	GeocodeCacheMisses prometheus.Counter

	RunsTotal *prometheus.CounterVec // label: status={success,partial,fatal}
}

// NewMetrics creates and registers all pipeline metrics on the given
// registerer; pass prometheus.DefaultRegisterer in production and a
// fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brewery",
			Name:      "records_normalized_total",
			Help:      "Raw records accepted by the normalizer.",
		}),
		RecordsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brewery",
			Name:      "records_rejected_total",
			Help:      "Raw records dropped for missing or invalid mandatory fields.",
		}),
		EntitiesMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brewery",
			Name:      "entities_merged_total",
			Help:      "Record pairs merged into an existing canonical entity.",
		}),
		GeocodeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brewery",
			Name:      "geocode_lookups_total",
			Help:      "Geocode strategy invocations by outcome.",
		}, []string{"strategy", "outcome"}),
		GeocodeCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brewery",
			Name:      "geocode_cache_hits_total",
			Help:      "In-run geocode cache hits.",
		}),
		GeocodeCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brewery",
			Name:      "geocode_cache_misses_total",
			Help:      "In-run geocode cache misses.",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brewery",
			Name:      "runs_total",
			Help:      "Completed pipeline runs by exit status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.RecordsNormalized,
		m.RecordsRejected,
		m.EntitiesMerged,
		m.GeocodeLookups,
		m.GeocodeCacheHits,
		m.GeocodeCacheMisses,
		m.RunsTotal,
	)
	return m
}
