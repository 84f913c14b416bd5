// Package metrics exposes Prometheus metrics for the trend pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics interface used by the pipeline stages
type Recorder interface {
	RecordSourceFetch(source string, items int, err error)
	RecordCacheLookup(cache string, hit bool)
	RecordEnrichment(outcome string)
	RecordEvidenceLookup(ok bool)
	RecordAnalyzeLatency(duration time.Duration)
}

// Collector records metrics into Prometheus
type Collector struct {
	sourceFetches  *prometheus.CounterVec
	sourceItems    *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	enrichments    *prometheus.CounterVec
	evidence       *prometheus.CounterVec
	analyzeLatency prometheus.Histogram
}

// NewCollector creates a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendtruth_source_fetch_total",
			Help: "Source fetches by source and outcome",
		}, []string{"source", "outcome"}),
		sourceItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendtruth_source_items_total",
			Help: "Candidate items returned by each source",
		}, []string{"source"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendtruth_cache_lookups_total",
			Help: "Cache lookups by cache and result",
		}, []string{"cache", "result"}),
		enrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendtruth_enrichment_total",
			Help: "Enrichment attempts by outcome",
		}, []string{"outcome"}),
		evidence: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendtruth_evidence_lookups_total",
			Help: "Evidence lookups by outcome",
		}, []string{"ok"}),
		analyzeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trendtruth_analyze_latency_seconds",
			Help:    "Latency of uncached analyze runs",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.sourceFetches,
		c.sourceItems,
		c.cacheLookups,
		c.enrichments,
		c.evidence,
		c.analyzeLatency,
	)

	return c
}

// RecordSourceFetch records one source call
func (c *Collector) RecordSourceFetch(source string, items int, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case items == 0:
		outcome = "empty"
	}
	c.sourceFetches.WithLabelValues(source, outcome).Inc()
	c.sourceItems.WithLabelValues(source).Add(float64(items))
}

// RecordCacheLookup records a hit or miss on a named cache
func (c *Collector) RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordEnrichment records an enrichment outcome
func (c *Collector) RecordEnrichment(outcome string) {
	c.enrichments.WithLabelValues(outcome).Inc()
}

// RecordEvidenceLookup records whether an evidence fetch succeeded
func (c *Collector) RecordEvidenceLookup(ok bool) {
	c.evidence.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

// RecordAnalyzeLatency records the duration of a fresh analyze run
func (c *Collector) RecordAnalyzeLatency(duration time.Duration) {
	c.analyzeLatency.Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop discards every measurement
type Noop struct{}

func (Noop) RecordSourceFetch(string, int, error) {}
func (Noop) RecordCacheLookup(string, bool)       {}
func (Noop) RecordEnrichment(string)              {}
func (Noop) RecordEvidenceLookup(bool)            {}
func (Noop) RecordAnalyzeLatency(time.Duration)   {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Noop{}
)
