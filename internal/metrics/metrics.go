// Package metrics exposes Prometheus collectors for case retrieval.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for resolutions.
const (
	OutcomeMatch   = "match"
	OutcomeNoMatch = "no_match"
	OutcomeError   = "error"
)

// Result labels for embedding cache lookups.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupStale = "stale"
)

// Metrics groups the collectors used by the ranker, embedder and resolver.
type Metrics struct {
	Resolutions  *prometheus.CounterVec
	CacheLookups *prometheus.CounterVec
	EmbedderLoad prometheus.Histogram
	RankDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg when reg is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pqrs",
			Name:      "resolutions_total",
			Help:      "Resolve calls by outcome.",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pqrs",
			Name:      "embedding_cache_lookups_total",
			Help:      "Embedding cache lookups by result.",
		}, []string{"result"}),
		EmbedderLoad: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pqrs",
			Name:      "embedder_load_seconds",
			Help:      "Time spent loading the embedding model.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60},
		}),
		RankDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pqrs",
			Name:      "rank_duration_seconds",
			Help:      "Time spent ranking the corpus for one query.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"ranker"}),
	}
	if reg != nil {
		reg.MustRegister(m.Resolutions, m.CacheLookups, m.EmbedderLoad, m.RankDuration)
	}
	return m
}

// ObserveResolution counts one Resolve call.
func (m *Metrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome).Inc()
}

// ObserveCacheLookup counts one embedding cache lookup.
func (m *Metrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveEmbedderLoad records how long the model took to load.
func (m *Metrics) ObserveEmbedderLoad(d time.Duration) {
	if m == nil {
		return
	}
	m.EmbedderLoad.Observe(d.Seconds())
}

// ObserveRank records the duration of one ranking pass.
func (m *Metrics) ObserveRank(ranker string, d time.Duration) {
	if m == nil {
		return
	}
	m.RankDuration.WithLabelValues(ranker).Observe(d.Seconds())
}
