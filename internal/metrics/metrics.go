package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	CacheEvictions      prometheus.Counter
	CacheSize           prometheus.Gauge
	EnrichmentCalls     prometheus.Counter
	EnrichmentFallbacks prometheus.Counter
	ChatRequests        prometheus.Counter
	PageAssemblyTime    prometheus.Histogram
}

// New creates new Prometheus metrics
func New() *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_digest_cache_hits_total",
			Help: "Total number of summary cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_digest_cache_misses_total",
			Help: "Total number of summary cache misses, including expired entries",
		}),
		CacheEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_digest_cache_evictions_total",
			Help: "Total number of entries evicted for capacity",
		}),
		CacheSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "inbox_digest_cache_size",
			Help: "Current number of entries in the summary cache",
		}),
		EnrichmentCalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_digest_enrichment_calls_total",
			Help: "Total number of completion calls to the language model",
		}),
		EnrichmentFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_digest_enrichment_fallbacks_total",
			Help: "Total number of enrichment calls that used a fallback value",
		}),
		ChatRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_digest_chat_requests_total",
			Help: "Total number of chat requests answered",
		}),
		PageAssemblyTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "inbox_digest_page_assembly_duration_seconds",
			Help:    "Time spent assembling an email page",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
