package metrics

import "time"

// NoopMetrics is a no-operation Recorder used when metrics are disabled.
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordGuardCheck(result string, duration time.Duration)     {}
func (n *NoopMetrics) RecordLogin(result string)                                  {}
func (n *NoopMetrics) RecordLogout()                                              {}
func (n *NoopMetrics) RecordAdminCheck(result string)                             {}
func (n *NoopMetrics) RecordAuthAPICall(operation string, duration time.Duration) {}
