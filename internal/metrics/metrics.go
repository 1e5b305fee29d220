package metrics

import (
	"sync"
	"time"

	"github.com/aqeluk/THYNKAPI/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is an alias for core.Recorder.
type Recorder = core.Recorder

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Authentication Metrics
	AuthLoginTotal          *prometheus.CounterVec
	AuthOAuthCallbackTotal  *prometheus.CounterVec
	AuthExternalAPIDuration *prometheus.HistogramVec
	AuthExternalAPIErrors   *prometheus.CounterVec
	IdentitiesCreatedTotal  *prometheus.CounterVec

	// Token Metrics
	TokensIssuedTotal       *prometheus.CounterVec
	TokenGenerationDuration prometheus.Histogram
	TokenValidationTotal    *prometheus.CounterVec
	TokenValidationDuration prometheus.Histogram

	// Identity cache
	CacheOperationsTotal *prometheus.CounterVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns Prometheus-backed Metrics when enabled and NoopMetrics otherwise.
// Prometheus collectors are registered only once per process.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		AuthLoginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Total number of login attempts",
			},
			[]string{"method", "result"}, // method: password or provider key
		),
		AuthOAuthCallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_oauth_callback_total",
				Help: "Total number of OAuth callbacks by outcome",
			},
			[]string{"provider", "result"},
		),
		AuthExternalAPIDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_external_api_duration_seconds",
				Help:    "Duration of calls to OAuth provider endpoints",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
			[]string{"provider", "step"}, // step: exchange, profile
		),
		AuthExternalAPIErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_external_api_errors_total",
				Help: "Total number of failed calls to OAuth provider endpoints",
			},
			[]string{"provider", "step"},
		),
		IdentitiesCreatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_identities_created_total",
				Help: "Total number of identities created",
			},
			[]string{"source"},
		),

		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_tokens_issued_total",
				Help: "Total number of tokens issued",
			},
			[]string{"purpose"},
		),
		TokenGenerationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "auth_token_generation_duration_seconds",
				Help:    "Time taken to sign a token",
				Buckets: prometheus.DefBuckets,
			},
		),
		TokenValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_token_validation_total",
				Help: "Total number of token validations",
			},
			[]string{"result"}, // valid, invalid, expired
		),
		TokenValidationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "auth_token_validation_duration_seconds",
				Help:    "Time taken to verify a token and resolve its identity",
				Buckets: prometheus.DefBuckets,
			},
		),

		CacheOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_identity_cache_operations_total",
				Help: "Identity cache lookups by result",
			},
			[]string{"operation", "result"}, // result: hit, miss, error
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"operation"},
		),
	}
}

// RecordLogin records a login outcome
func (m *Metrics) RecordLogin(method, result string) {
	m.AuthLoginTotal.WithLabelValues(method, result).Inc()
}

// RecordOAuthCallback records the outcome of an OAuth callback
func (m *Metrics) RecordOAuthCallback(provider, result string) {
	m.AuthOAuthCallbackTotal.WithLabelValues(provider, result).Inc()
}

// RecordExternalAPICall records one call to a provider endpoint
func (m *Metrics) RecordExternalAPICall(
	provider, step string,
	duration time.Duration,
	success bool,
) {
	m.AuthExternalAPIDuration.WithLabelValues(provider, step).Observe(duration.Seconds())
	if !success {
		m.AuthExternalAPIErrors.WithLabelValues(provider, step).Inc()
	}
}

func (m *Metrics) RecordIdentityCreated(source string) {
	m.IdentitiesCreatedTotal.WithLabelValues(source).Inc()
}

// RecordTokenIssued records token issuance
func (m *Metrics) RecordTokenIssued(purpose string, generationTime time.Duration) {
	m.TokensIssuedTotal.WithLabelValues(purpose).Inc()
	m.TokenGenerationDuration.Observe(generationTime.Seconds())
}

// RecordTokenValidation records token validation
func (m *Metrics) RecordTokenValidation(result string, duration time.Duration) {
	m.TokenValidationTotal.WithLabelValues(result).Inc()
	m.TokenValidationDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheOperation(operation, result string) {
	m.CacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordDatabaseQueryError records a failed database query
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
