// Package metrics defines the Prometheus collectors an index records its
// build and search activity into.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ivfile"

// Metrics holds the Prometheus collectors of one or more indexes.
// A nil *Metrics records nothing.
type Metrics struct {
	DocsIndexedTotal   prometheus.Counter
	TokensIndexedTotal prometheus.Counter
	SearchesTotal      *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "docs_indexed_total",
				Help:      "Total documents passed to build.",
			},
		),
		TokensIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_indexed_total",
				Help:      "Total tokens recorded in posting lists.",
			},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Total ranked queries by distance scheme.",
			},
			[]string{"dist"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_latency_seconds",
				Help:      "Time to rank one query in seconds.",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"dist"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results_count",
				Help:      "Number of ranked entries returned per query.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 1000},
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.DocsIndexedTotal,
			m.TokensIndexedTotal,
			m.SearchesTotal,
			m.SearchLatency,
			m.SearchResultsCount,
		)
	}
	return m
}

// ObserveBuild records one build call.
func (m *Metrics) ObserveBuild(docs, tokens int) {
	if m == nil {
		return
	}
	m.DocsIndexedTotal.Add(float64(docs))
	m.TokensIndexedTotal.Add(float64(tokens))
}

// ObserveSearch records one ranked query.
func (m *Metrics) ObserveSearch(dist string, d time.Duration, results int) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(dist).Inc()
	m.SearchLatency.WithLabelValues(dist).Observe(d.Seconds())
	m.SearchResultsCount.Observe(float64(results))
}
