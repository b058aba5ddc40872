package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Optimizations counts returned routes by the tier that produced them
	Optimizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "routeopt_optimizations_total", Help: "Optimizations by strategy used."},
		[]string{"strategy"},
	)
	// TierFallbacks counts skipped or failed tiers
	TierFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "routeopt_tier_fallbacks_total", Help: "Tiers skipped or failed, by tier and reason code."},
		[]string{"tier", "reason"},
	)
	// TierDuration records how long each tier ran
	TierDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "routeopt_tier_duration_seconds", Help: "Tier run time in seconds.", Buckets: []float64{.001, .01, .05, .1, .5, 1, 5, 15, 30, 60}},
		[]string{"tier", "outcome"},
	)
	// ExcludedPackages counts packages dropped at the boundary
	ExcludedPackages = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "routeopt_excluded_packages_total", Help: "Packages excluded for invalid coordinates."},
	)
	// CacheLookups counts result cache hits and misses
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "routeopt_cache_lookups_total", Help: "Route cache lookups by result."},
		[]string{"result"},
	)
	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Optimizations)
		Registry.MustRegister(TierFallbacks)
		Registry.MustRegister(TierDuration)
		Registry.MustRegister(ExcludedPackages)
		Registry.MustRegister(CacheLookups)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
