package metrics

import "time"

// NoopMetrics discards every measurement. Used when metrics are disabled.
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordLogin(method, result string)           {}
func (n *NoopMetrics) RecordOAuthCallback(provider, result string) {}
func (n *NoopMetrics) RecordExternalAPICall(
	provider, step string,
	duration time.Duration,
	success bool,
) {
}
func (n *NoopMetrics) RecordIdentityCreated(source string)                          {}
func (n *NoopMetrics) RecordTokenIssued(purpose string, generationTime time.Duration) {}
func (n *NoopMetrics) RecordTokenValidation(result string, duration time.Duration)  {}
func (n *NoopMetrics) RecordCacheOperation(operation, result string)                {}
func (n *NoopMetrics) RecordDatabaseQueryError(operation string)                    {}
