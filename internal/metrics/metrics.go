// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Resolution path metrics
	IncResolveCacheHit()
	IncResolveCacheMiss()
	IncResolveOutcome(outcome string) // "redirect", "gone", "not_found", "bad_request"
	ObserveResolveDuration(duration time.Duration)

	// Link write-side metrics
	IncLinkCreated()
	IncLinkUpdated()
	IncLinkDeleted()

	// Click pipeline metrics
	IncClickEventPublished(status string) // "success" or "dropped"
	IncClickEventConsumed(status string)  // "success", "failed", "parked"
	ObserveConsumeLag(lag time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
