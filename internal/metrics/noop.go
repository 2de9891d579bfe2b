package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncResolveCacheHit is a no-op.
func (n *NoopRecorder) IncResolveCacheHit() {}

// IncResolveCacheMiss is a no-op.
func (n *NoopRecorder) IncResolveCacheMiss() {}

// IncResolveOutcome is a no-op.
func (n *NoopRecorder) IncResolveOutcome(outcome string) {}

// ObserveResolveDuration is a no-op.
func (n *NoopRecorder) ObserveResolveDuration(duration time.Duration) {}

// IncLinkCreated is a no-op.
func (n *NoopRecorder) IncLinkCreated() {}

// IncLinkUpdated is a no-op.
func (n *NoopRecorder) IncLinkUpdated() {}

// IncLinkDeleted is a no-op.
func (n *NoopRecorder) IncLinkDeleted() {}

// IncClickEventPublished is a no-op.
func (n *NoopRecorder) IncClickEventPublished(status string) {}

// IncClickEventConsumed is a no-op.
func (n *NoopRecorder) IncClickEventConsumed(status string) {}

// ObserveConsumeLag is a no-op.
func (n *NoopRecorder) ObserveConsumeLag(lag time.Duration) {}
