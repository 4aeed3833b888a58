package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) ActionCommitted(action string)           {}
func (n *NoopSink) ActionRejected(action, reason string)    {}
func (n *NoopSink) JobCompleted(tripDuration time.Duration) {}
func (n *NoopSink) SnapshotCacheLookup(hit bool)            {}
