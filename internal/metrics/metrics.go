// Package metrics implements app.Metrics using Prometheus client_golang
// counters and histograms, and exposes them over the standard /metrics
// scrape endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements app.Metrics.
type Collector struct {
	ingestTotal     *prometheus.CounterVec
	ingestBytes     prometheus.Histogram
	ingestDuration  prometheus.Histogram
	downloadTotal   *prometheus.CounterVec
	downloadBytes   prometheus.Histogram
	deleteTotal     *prometheus.CounterVec
	reapTotal       prometheus.Counter
	reapDuration    prometheus.Histogram
}

// New registers the collector's metrics against reg and returns it. Passing
// prometheus.NewRegistry() isolates metrics for tests; passing
// prometheus.DefaultRegisterer wires into the process-wide registry.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dropvault",
			Name:      "ingest_total",
			Help:      "Total ingest attempts, labeled by outcome.",
		}, []string{"outcome"}),
		ingestBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dropvault",
			Name:      "ingest_bytes",
			Help:      "Size in bytes of ingested files.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 12),
		}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dropvault",
			Name:      "ingest_duration_seconds",
			Help:      "Wall-clock duration of ingest calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		downloadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dropvault",
			Name:      "download_total",
			Help:      "Total download attempts, labeled by outcome.",
		}, []string{"outcome"}),
		downloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dropvault",
			Name:      "download_bytes",
			Help:      "Size in bytes of downloaded files.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 12),
		}),
		deleteTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dropvault",
			Name:      "delete_total",
			Help:      "Total delete attempts, labeled by outcome.",
		}, []string{"outcome"}),
		reapTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dropvault",
			Name:      "reap_reclaimed_total",
			Help:      "Total files reclaimed by the reaper.",
		}),
		reapDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dropvault",
			Name:      "reap_duration_seconds",
			Help:      "Wall-clock duration of reaper passes.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		c.ingestTotal, c.ingestBytes, c.ingestDuration,
		c.downloadTotal, c.downloadBytes,
		c.deleteTotal,
		c.reapTotal, c.reapDuration,
	)
	return c
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (c *Collector) ObserveIngest(bytes int64, duration time.Duration, ok bool) {
	c.ingestTotal.WithLabelValues(outcome(ok)).Inc()
	if ok {
		c.ingestBytes.Observe(float64(bytes))
	}
	c.ingestDuration.Observe(duration.Seconds())
}

func (c *Collector) ObserveDownload(bytes int64, ok bool) {
	c.downloadTotal.WithLabelValues(outcome(ok)).Inc()
	if ok {
		c.downloadBytes.Observe(float64(bytes))
	}
}

func (c *Collector) ObserveDelete(ok bool) {
	c.deleteTotal.WithLabelValues(outcome(ok)).Inc()
}

func (c *Collector) ObserveReap(reclaimed int, duration time.Duration) {
	c.reapTotal.Add(float64(reclaimed))
	c.reapDuration.Observe(duration.Seconds())
}

// Handler returns an http.Handler serving reg's metrics in the Prometheus
// exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
