package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for one Handler. Every
// Handler carries its own registry, so several handlers can coexist in
// one process.
type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal   *prometheus.CounterVec
	AggregatesTotal *prometheus.CounterVec
	SearchDuration  prometheus.Histogram
	SearchMatches   prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anubistats_searches_total",
				Help: "Total number of search requests by status.",
			},
			[]string{"status"},
		),
		AggregatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anubistats_aggregates_total",
				Help: "Total number of aggregation requests by status.",
			},
			[]string{"status"},
		),
		SearchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "anubistats_search_duration_seconds",
				Help:    "Search request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		SearchMatches: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "anubistats_search_matches",
				Help:    "Number of matching documents per search request.",
				Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
			},
		),
	}
	m.registry.MustRegister(m.SearchesTotal, m.AggregatesTotal, m.SearchDuration, m.SearchMatches)
	return m
}

// Handler returns the scrape endpoint for this collector set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
