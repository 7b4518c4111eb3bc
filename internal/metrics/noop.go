package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) StoreOperation(operation, outcome string, duration time.Duration) {}
func (n *NoopSink) SessionOpened()                                                   {}
func (n *NoopSink) SessionClosed()                                                   {}
func (n *NoopSink) ConflictsAdjust(severity string, delta int)                       {}
func (n *NoopSink) StaleResponse()                                                   {}
