// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package metrics exports Prometheus metrics for retrieval, indexing and
// re-embedding. Every recording method is safe to call on a nil *Metrics,
// so components can treat metrics as optional.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "journalit"

// Source labels used by the retrieval metrics.
const (
	SourceVector    = "vector"
	SourceAttribute = "attribute"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	sourceLatency  *prometheus.HistogramVec
	candidates     *prometheus.HistogramVec
	sourceFailures *prometheus.CounterVec
	merged         prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
	indexed        *prometheus.CounterVec
	reembedded     *prometheus.CounterVec
}

// Config configures the collectors.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default metrics configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}
}

// New creates and registers the collectors.
func New(cfg Config) *Metrics {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{registry: registry}

	m.sourceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "source_latency_seconds",
			Help:      "Candidate source latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"source"},
	)

	m.candidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "candidates",
			Help:      "Number of candidates returned per source",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		},
		[]string{"source"},
	)

	m.sourceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "source_failures_total",
			Help:      "Total number of failed candidate source calls",
		},
		[]string{"source"},
	)

	m.merged = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "merged_results",
			Help:      "Number of identifiers returned by a retrieval",
			Buckets:   prometheus.LinearBuckets(0, 2, 10),
		},
	)

	m.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "embedding_cache_lookups_total",
			Help:      "Query embedding cache lookups",
		},
		[]string{"result"},
	)

	m.indexed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_total",
			Help:      "Total number of records indexed",
		},
		[]string{"kind", "status"},
	)

	m.reembedded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reembed",
			Name:      "records_total",
			Help:      "Total number of records re-embedded",
		},
		[]string{"kind", "status"},
	)

	registry.MustRegister(
		m.sourceLatency,
		m.candidates,
		m.sourceFailures,
		m.merged,
		m.cacheLookups,
		m.indexed,
		m.reembedded,
	)
	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveSource records one candidate source call.
func (m *Metrics) ObserveSource(source string, latency time.Duration, candidates int, err error) {
	if m == nil {
		return
	}
	m.sourceLatency.WithLabelValues(source).Observe(latency.Seconds())
	if err != nil {
		m.sourceFailures.WithLabelValues(source).Inc()
		return
	}
	m.candidates.WithLabelValues(source).Observe(float64(candidates))
}

// ObserveMerged records the size of a merged result.
func (m *Metrics) ObserveMerged(n int) {
	if m == nil {
		return
	}
	m.merged.Observe(float64(n))
}

// RecordCacheLookup records a query embedding cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordIndexed records one indexing attempt for a record kind.
func (m *Metrics) RecordIndexed(kind string, err error) {
	if m == nil {
		return
	}
	m.indexed.WithLabelValues(kind, status(err)).Inc()
}

// RecordReembedded adds n re-embedding outcomes for a record kind.
func (m *Metrics) RecordReembedded(kind string, n int, err error) {
	if m == nil || n <= 0 {
		return
	}
	m.reembedded.WithLabelValues(kind, status(err)).Add(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends the registry contents to a Pushgateway. Short-lived CLI runs
// use this instead of being scraped.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil {
		return nil
	}
	return push.New(url, job).Gatherer(m.registry).PushContext(ctx)
}
