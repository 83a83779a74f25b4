package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	tenantResolutions *prometheus.CounterVec
	logins            *prometheus.CounterVec
	guardDenials      *prometheus.CounterVec
	revalidations     *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	upstreamErrors    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		tenantResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_tenant_resolutions_total",
				Help: "Total host classifications by tenant kind.",
			},
			[]string{"kind"},
		),
		logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_logins_total",
				Help: "Total login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		guardDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_guard_denials_total",
				Help: "Total route guard denials, split by unauthenticated vs forbidden.",
			},
			[]string{"reason"},
		),
		revalidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_session_revalidations_total",
				Help: "Total background identity revalidations by outcome.",
			},
			[]string{"outcome"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_upstream_errors_total",
				Help: "Total errors from the distro backend.",
			},
			[]string{"endpoint"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrTenantResolution increments the resolution counter for a tenant kind.
func (m *Metrics) IncrTenantResolution(kind string) {
	m.tenantResolutions.WithLabelValues(kind).Inc()
}

// IncrLogin increments the login counter ("success" or "failure").
func (m *Metrics) IncrLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// IncrGuardDenial increments the guard denial counter
// ("unauthenticated" or "forbidden").
func (m *Metrics) IncrGuardDenial(reason string) {
	m.guardDenials.WithLabelValues(reason).Inc()
}

// IncrRevalidation increments the revalidation counter
// ("confirmed", "demoted" or "stale").
func (m *Metrics) IncrRevalidation(outcome string) {
	m.revalidations.WithLabelValues(outcome).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrUpstreamError increments the upstream error counter.
func (m *Metrics) IncrUpstreamError(endpoint string) {
	m.upstreamErrors.WithLabelValues(endpoint).Inc()
}

// GuardDenials returns the current denial count for a reason label.
// Used by tests and the session state probe.
func (m *Metrics) GuardDenials(reason string) float64 {
	return getCounterValue(m.guardDenials, reason)
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	metric := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(metric); err != nil {
		return 0
	}
	if metric.Counter != nil && metric.Counter.Value != nil {
		return *metric.Counter.Value
	}
	return 0
}
