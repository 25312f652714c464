// Package metrics exposes Prometheus collectors for progressive loading.
//
// All methods are safe on a nil *Collector so components can take an
// optional collector without guarding every call.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sidechain_reader"

// Fetch results
const (
	ResultMore      = "more"
	ResultExhausted = "exhausted"
	ResultError     = "error"
	ResultOK        = "ok"
)

// Collector groups the reader's collectors
type Collector struct {
	pageFetches    *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	skippedTrigger *prometheus.CounterVec
	mediaLoads     *prometheus.CounterVec
	activeWatchers prometheus.Gauge
}

// New creates a collector and registers it with reg
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_fetches_total",
			Help:      "Page loads issued by infinite scroll controllers, by result.",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_fetch_duration_seconds",
			Help:      "Duration of page loads.",
			Buckets:   prometheus.DefBuckets,
		}),
		skippedTrigger: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_triggers_total",
			Help:      "Visibility triggers ignored by a controller, by reason.",
		}, []string{"reason"}),
		mediaLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_loads_total",
			Help:      "Media requests issued by lazy loaders, by result.",
		}, []string{"result"}),
		activeWatchers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_watchers",
			Help:      "Live visibility subscriptions.",
		}),
	}

	if reg != nil {
		reg.MustRegister(c.pageFetches, c.fetchDuration, c.skippedTrigger, c.mediaLoads, c.activeWatchers)
	}
	return c
}

// PageFetched records a settled page load
func (c *Collector) PageFetched(result string, d time.Duration) {
	if c == nil {
		return
	}
	c.pageFetches.WithLabelValues(result).Inc()
	c.fetchDuration.Observe(d.Seconds())
}

// TriggerSkipped records a trigger dropped by a guard
func (c *Collector) TriggerSkipped(reason string) {
	if c == nil {
		return
	}
	c.skippedTrigger.WithLabelValues(reason).Inc()
}

// MediaLoaded records a settled media request
func (c *Collector) MediaLoaded(result string) {
	if c == nil {
		return
	}
	c.mediaLoads.WithLabelValues(result).Inc()
}

// WatcherAdded increments the live subscription gauge
func (c *Collector) WatcherAdded() {
	if c == nil {
		return
	}
	c.activeWatchers.Inc()
}

// WatcherRemoved decrements the live subscription gauge
func (c *Collector) WatcherRemoved() {
	if c == nil {
		return
	}
	c.activeWatchers.Dec()
}

// Handler serves the registry in the Prometheus exposition format
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
