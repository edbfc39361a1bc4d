package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var portalDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics holds all Prometheus metric instruments for the client.
type Metrics struct {
	PortalRequestsTotal   *prometheus.CounterVec
	PortalRequestDuration *prometheus.HistogramVec
	PortalRetriesTotal    prometheus.Counter

	RefreshCyclesTotal  *prometheus.CounterVec
	RefreshWaitersTotal prometheus.Counter

	WizardTransitionsTotal *prometheus.CounterVec
	WizardValidationFails  *prometheus.CounterVec
	DraftsDiscardedTotal   prometheus.Counter

	ConstantsCacheHitsTotal   prometheus.Counter
	ConstantsCacheMissesTotal prometheus.Counter
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PortalRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insaf_portal_requests_total",
			Help: "Total number of portal requests.",
		}, []string{"method", "operation", "status"}),
		PortalRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insaf_portal_request_duration_seconds",
			Help:    "Portal request duration in seconds.",
			Buckets: portalDurationBuckets,
		}, []string{"method", "operation"}),
		PortalRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insaf_portal_retries_total",
			Help: "Total number of requests re-issued after a token refresh.",
		}),

		RefreshCyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insaf_refresh_cycles_total",
			Help: "Total number of token refresh cycles.",
		}, []string{"outcome"}),
		RefreshWaitersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insaf_refresh_waiters_total",
			Help: "Total number of requests that joined an in-flight refresh.",
		}),

		WizardTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insaf_wizard_transitions_total",
			Help: "Total number of wizard step transitions.",
		}, []string{"direction"}),
		WizardValidationFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insaf_wizard_validation_failures_total",
			Help: "Total number of wizard step validation failures.",
		}, []string{"step"}),
		DraftsDiscardedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insaf_drafts_discarded_total",
			Help: "Total number of persisted drafts discarded on load.",
		}),

		ConstantsCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insaf_constants_cache_hits_total",
			Help: "Total number of locale-constants cache hits.",
		}),
		ConstantsCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insaf_constants_cache_misses_total",
			Help: "Total number of locale-constants cache misses.",
		}),
	}

	reg.MustRegister(
		m.PortalRequestsTotal,
		m.PortalRequestDuration,
		m.PortalRetriesTotal,
		m.RefreshCyclesTotal,
		m.RefreshWaitersTotal,
		m.WizardTransitionsTotal,
		m.WizardValidationFails,
		m.DraftsDiscardedTotal,
		m.ConstantsCacheHitsTotal,
		m.ConstantsCacheMissesTotal,
	)

	return m
}

// ObservePortalRequest records a completed portal request.
func (m *Metrics) ObservePortalRequest(method, operation string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PortalRequestsTotal.WithLabelValues(method, operation, strconv.Itoa(status)).Inc()
	m.PortalRequestDuration.WithLabelValues(method, operation).Observe(elapsed.Seconds())
}
