package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the Prometheus collectors updated by a Manager.
type Metrics struct {
	Hits                 *prometheus.CounterVec
	Misses               prometheus.Counter
	DedupJoins           prometheus.Counter
	StaleRevalidations   prometheus.Counter
	DurableWriteFailures prometheus.Counter
	DurableEvictions     prometheus.Counter
	Swept                prometheus.Counter
}

// NewMetrics creates the cache collectors and registers them on reg. A
// nil reg leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsreader",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits by tier.",
		}, []string{"tier"}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsreader",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Lookups that found no valid entry.",
		}),
		DedupJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsreader",
			Subsystem: "cache",
			Name:      "dedup_joins_total",
			Help:      "Callers attached to an already running operation.",
		}),
		StaleRevalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsreader",
			Subsystem: "cache",
			Name:      "stale_revalidations_total",
			Help:      "Background refreshes scheduled for stale entries.",
		}),
		DurableWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsreader",
			Subsystem: "cache",
			Name:      "durable_write_failures_total",
			Help:      "Durable writes dropped after the eviction retry.",
		}),
		DurableEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsreader",
			Subsystem: "cache",
			Name:      "durable_evictions_total",
			Help:      "Durable entries evicted to make room.",
		}),
		Swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsreader",
			Subsystem: "cache",
			Name:      "swept_total",
			Help:      "Expired in-memory entries removed by maintenance.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Hits, m.Misses, m.DedupJoins, m.StaleRevalidations,
			m.DurableWriteFailures, m.DurableEvictions, m.Swept,
		)
	}
	return m
}
