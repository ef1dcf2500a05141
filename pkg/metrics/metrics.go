// Package metrics provides Prometheus metrics for search executions.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rubiojr/gridsearch/pkg/query"
	"github.com/rubiojr/gridsearch/pkg/search"
)

var (
	// SearchTotal counts search executions by backend and outcome.
	SearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridsearch",
			Name:      "search_total",
			Help:      "Total number of search executions",
		},
		[]string{"backend", "status"},
	)

	// SearchDuration measures backend search latency.
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gridsearch",
			Name:      "search_duration_seconds",
			Help:      "Duration of search executions in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	// SearchHits observes the total matches reported per search.
	SearchHits = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gridsearch",
			Name:      "search_hits",
			Help:      "Distribution of total matches per search",
			Buckets:   []float64{0, 1, 10, 25, 100, 1000, 10000},
		},
		[]string{"backend"},
	)

	// IndexedDocuments counts documents handed to an indexer.
	IndexedDocuments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridsearch",
			Name:      "indexed_documents_total",
			Help:      "Total number of documents indexed",
		},
		[]string{"backend"},
	)

	// ConfigReloads counts configuration reloads by outcome.
	ConfigReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridsearch",
			Name:      "config_reloads_total",
			Help:      "Total number of configuration reloads",
		},
		[]string{"status"},
	)
)

// RecordSearch records one search execution.
func RecordSearch(backend, status string, duration float64, hits int) {
	SearchTotal.WithLabelValues(backend, status).Inc()
	SearchDuration.WithLabelValues(backend).Observe(duration)
	if status == "ok" {
		SearchHits.WithLabelValues(backend).Observe(float64(hits))
	}
}

// RecordReload records a configuration reload.
func RecordReload(err error) {
	if err != nil {
		ConfigReloads.WithLabelValues("error").Inc()
		return
	}
	ConfigReloads.WithLabelValues("ok").Inc()
}

type instrumented struct {
	name    string
	backend search.Backend
}

// InstrumentBackend wraps backend so every search is recorded under name.
func InstrumentBackend(name string, backend search.Backend) search.Backend {
	return &instrumented{name: name, backend: backend}
}

func (i *instrumented) Search(ctx context.Context, req *query.SearchRequest) (*search.Result, error) {
	start := time.Now()
	res, err := i.backend.Search(ctx, req)
	if err != nil {
		RecordSearch(i.name, "error", time.Since(start).Seconds(), 0)
		return nil, err
	}
	RecordSearch(i.name, "ok", time.Since(start).Seconds(), res.Total)
	return res, nil
}

// RecordIndexed records n documents indexed by backend.
func RecordIndexed(backend string, n int) {
	IndexedDocuments.WithLabelValues(backend).Add(float64(n))
}
