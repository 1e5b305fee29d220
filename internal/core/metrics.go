package core

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Authentication
	RecordLogin(method, result string)
	RecordOAuthCallback(provider, result string)
	RecordExternalAPICall(provider, step string, duration time.Duration, success bool)
	RecordIdentityCreated(source string)

	// Token Operations
	RecordTokenIssued(purpose string, generationTime time.Duration)
	RecordTokenValidation(result string, duration time.Duration)

	// Identity cache
	RecordCacheOperation(operation, result string)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}
