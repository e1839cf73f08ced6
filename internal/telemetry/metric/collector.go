// Package metric provides Prometheus metrics for jetkv.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/jetkv/internal/storage/memory"
)

// StoreStats is the view of the store the collector reads.
type StoreStats interface {
	Len() int
	Stats() memory.Stats
}

// Collector reports store size and keyspace counters at scrape time.
type Collector struct {
	store StoreStats

	keys    *prometheus.Desc
	hits    *prometheus.Desc
	misses  *prometheus.Desc
	expired *prometheus.Desc
}

// NewCollector creates a collector for store.
func NewCollector(store StoreStats) *Collector {
	return &Collector{
		store: store,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "keys"),
			"Entries physically held by the store, including expired entries not yet observed.",
			nil, nil,
		),
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "keyspace", "hits_total"),
			"Successful key lookups.",
			nil, nil,
		),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "keyspace", "misses_total"),
			"Key lookups that found nothing.",
			nil, nil,
		),
		expired: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "expired_keys_total"),
			"Entries evicted lazily after their deadline passed.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.hits
	ch <- c.misses
	ch <- c.expired
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.store.Stats()
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(c.store.Len()))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(st.Misses))
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(st.Expired))
}
