package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Recorder is what the gateway records about itself. A noop
// implementation backs it when metrics are disabled.
type Recorder interface {
	// RecordGuardCheck counts one guarded navigation with its outcome:
	// "authorized", "no_cookie", "auth_failed" or "network_failed".
	RecordGuardCheck(result string, duration time.Duration)

	// RecordLogin counts a login exchange: "success",
	// "validation_failed", "auth_failed" or "network_failed".
	RecordLogin(result string)

	// RecordLogout counts a logout; outcome is not a label on purpose,
	// logout is best-effort and always resolves the same way.
	RecordLogout()

	// RecordAdminCheck counts an admin-console auth check: "authorized",
	// "not_admin" or "failed".
	RecordAdminCheck(result string)

	// RecordAuthAPICall observes one call to the auth service.
	RecordAuthAPICall(operation string, duration time.Duration)
}

// Metrics holds all Prometheus metrics for the gateway
type Metrics struct {
	GuardChecksTotal   *prometheus.CounterVec
	GuardCheckDuration prometheus.Histogram

	LoginsTotal  *prometheus.CounterVec
	LogoutsTotal prometheus.Counter

	AdminChecksTotal *prometheus.CounterVec

	AuthAPIDuration *prometheus.HistogramVec

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns a Recorder. Prometheus metrics are registered only once;
// disabled metrics cost nothing via the noop implementation.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		GuardChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crowsnest_guard_checks_total",
				Help: "Total number of guarded navigations by outcome",
			},
			[]string{"result"}, // authorized, no_cookie, auth_failed, network_failed
		),
		GuardCheckDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crowsnest_guard_check_duration_seconds",
				Help:    "Time spent deciding one guarded navigation",
				Buckets: prometheus.DefBuckets,
			},
		),
		LoginsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crowsnest_logins_total",
				Help: "Total number of login exchanges by outcome",
			},
			[]string{"result"}, // success, validation_failed, auth_failed, network_failed
		),
		LogoutsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crowsnest_logouts_total",
				Help: "Total number of logout requests",
			},
		),
		AdminChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crowsnest_admin_checks_total",
				Help: "Total number of admin console auth checks by outcome",
			},
			[]string{"result"}, // authorized, not_admin, failed
		),
		AuthAPIDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crowsnest_auth_api_request_duration_seconds",
				Help:    "Latency of calls to the auth service",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"}, // me, login, logout
		),
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crowsnest_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crowsnest_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crowsnest_http_requests_in_flight",
				Help: "Current number of in-flight HTTP requests",
			},
		),
	}
}

// RecordGuardCheck records the outcome of one guarded navigation
func (m *Metrics) RecordGuardCheck(result string, duration time.Duration) {
	m.GuardChecksTotal.WithLabelValues(result).Inc()
	m.GuardCheckDuration.Observe(duration.Seconds())
}

// RecordLogin records the outcome of one login exchange
func (m *Metrics) RecordLogin(result string) {
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// RecordLogout records one logout request
func (m *Metrics) RecordLogout() {
	m.LogoutsTotal.Inc()
}

// RecordAdminCheck records the outcome of one admin console auth check
func (m *Metrics) RecordAdminCheck(result string) {
	m.AdminChecksTotal.WithLabelValues(result).Inc()
}

// RecordAuthAPICall records the latency of one auth service call
func (m *Metrics) RecordAuthAPICall(operation string, duration time.Duration) {
	m.AuthAPIDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
