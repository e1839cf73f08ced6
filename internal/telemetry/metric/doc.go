// Package metric provides Prometheus metrics for jetkv.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry, recording helpers and HTTP handler
//   - collector.go: Collector reporting store size and keyspace counters
//
// Metrics include:
//
//   - Command counters and latency histograms
//   - Connection gauges and counters
//   - Protocol error and rate limit counters
//   - Keyspace hits, misses and lazily expired keys
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
