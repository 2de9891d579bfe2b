package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryRecorder_Counters(t *testing.T) {
	t.Parallel()

	m := NewInMemory()

	m.IncResolveCacheHit()
	m.IncResolveCacheHit()
	m.IncResolveCacheMiss()
	m.IncResolveOutcome("redirect")
	m.IncResolveOutcome("redirect")
	m.IncResolveOutcome("gone")
	m.IncLinkCreated()
	m.IncLinkUpdated()
	m.IncLinkDeleted()
	m.IncClickEventPublished("success")
	m.IncClickEventPublished("dropped")
	m.IncClickEventConsumed("success")
	m.ObserveResolveDuration(10 * time.Millisecond)
	m.ObserveConsumeLag(time.Second)

	snap := m.Snapshot()

	if snap.ResolveCacheHits != 2 {
		t.Errorf("ResolveCacheHits = %d, want 2", snap.ResolveCacheHits)
	}
	if snap.ResolveCacheMisses != 1 {
		t.Errorf("ResolveCacheMisses = %d, want 1", snap.ResolveCacheMisses)
	}
	if snap.ResolveOutcomes["redirect"] != 2 {
		t.Errorf("redirect outcomes = %d, want 2", snap.ResolveOutcomes["redirect"])
	}
	if snap.ResolveOutcomes["gone"] != 1 {
		t.Errorf("gone outcomes = %d, want 1", snap.ResolveOutcomes["gone"])
	}
	if snap.LinksCreated != 1 || snap.LinksUpdated != 1 || snap.LinksDeleted != 1 {
		t.Error("link counters should each be 1")
	}
	if snap.EventsPublished["success"] != 1 || snap.EventsPublished["dropped"] != 1 {
		t.Errorf("EventsPublished = %v", snap.EventsPublished)
	}
	if snap.EventsConsumed["success"] != 1 {
		t.Errorf("EventsConsumed = %v", snap.EventsConsumed)
	}
	if snap.ResolveDurationCount != 1 {
		t.Errorf("ResolveDurationCount = %d, want 1", snap.ResolveDurationCount)
	}
	if snap.ConsumeLagCount != 1 {
		t.Errorf("ConsumeLagCount = %d, want 1", snap.ConsumeLagCount)
	}
	if snap.ConsumeLagTotalNs != time.Second.Nanoseconds() {
		t.Errorf("ConsumeLagTotalNs = %d, want %d", snap.ConsumeLagTotalNs, time.Second.Nanoseconds())
	}
}

func TestInMemoryRecorder_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncResolveOutcome("redirect")

	snap := m.Snapshot()
	snap.ResolveOutcomes["redirect"] = 100

	if m.Snapshot().ResolveOutcomes["redirect"] != 1 {
		t.Error("mutating a snapshot must not affect the recorder")
	}
}

func TestInMemoryRecorder_ConcurrentUse(t *testing.T) {
	t.Parallel()

	m := NewInMemory()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.IncResolveCacheHit()
				m.IncResolveOutcome("redirect")
				m.IncClickEventPublished("success")
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.ResolveCacheHits != 1000 {
		t.Errorf("ResolveCacheHits = %d, want 1000", snap.ResolveCacheHits)
	}
	if snap.ResolveOutcomes["redirect"] != 1000 {
		t.Errorf("redirect outcomes = %d, want 1000", snap.ResolveOutcomes["redirect"])
	}
}

func TestNoopRecorder(t *testing.T) {
	t.Parallel()

	// Must not panic.
	m := NewNoop()
	m.IncResolveCacheHit()
	m.IncResolveCacheMiss()
	m.IncResolveOutcome("redirect")
	m.ObserveResolveDuration(time.Millisecond)
	m.IncLinkCreated()
	m.IncLinkUpdated()
	m.IncLinkDeleted()
	m.IncClickEventPublished("success")
	m.IncClickEventConsumed("failed")
	m.ObserveConsumeLag(time.Second)
}
