package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ResolveCacheHits       uint64
	ResolveCacheMisses     uint64
	ResolveOutcomes        map[string]uint64
	ResolveDurationCount   uint64
	ResolveDurationTotalNs int64
	LinksCreated           uint64
	LinksUpdated           uint64
	LinksDeleted           uint64
	EventsPublished        map[string]uint64
	EventsConsumed         map[string]uint64
	ConsumeLagCount        uint64
	ConsumeLagTotalNs      int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	resolveCacheHits       uint64
	resolveCacheMisses     uint64
	resolveDurationCount   uint64
	resolveDurationTotalNs int64
	linksCreated           uint64
	linksUpdated           uint64
	linksDeleted           uint64
	consumeLagCount        uint64
	consumeLagTotalNs      int64

	mu              sync.Mutex
	resolveOutcomes map[string]uint64
	eventsPublished map[string]uint64
	eventsConsumed  map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		resolveOutcomes: make(map[string]uint64),
		eventsPublished: make(map[string]uint64),
		eventsConsumed:  make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		ResolveCacheHits:       atomic.LoadUint64(&m.resolveCacheHits),
		ResolveCacheMisses:     atomic.LoadUint64(&m.resolveCacheMisses),
		ResolveOutcomes:        copyCounters(m.resolveOutcomes),
		ResolveDurationCount:   atomic.LoadUint64(&m.resolveDurationCount),
		ResolveDurationTotalNs: atomic.LoadInt64(&m.resolveDurationTotalNs),
		LinksCreated:           atomic.LoadUint64(&m.linksCreated),
		LinksUpdated:           atomic.LoadUint64(&m.linksUpdated),
		LinksDeleted:           atomic.LoadUint64(&m.linksDeleted),
		EventsPublished:        copyCounters(m.eventsPublished),
		EventsConsumed:         copyCounters(m.eventsConsumed),
		ConsumeLagCount:        atomic.LoadUint64(&m.consumeLagCount),
		ConsumeLagTotalNs:      atomic.LoadInt64(&m.consumeLagTotalNs),
	}
}

// IncResolveCacheHit increments the cache hit counter.
func (m *InMemoryRecorder) IncResolveCacheHit() {
	atomic.AddUint64(&m.resolveCacheHits, 1)
}

// IncResolveCacheMiss increments the cache miss counter.
func (m *InMemoryRecorder) IncResolveCacheMiss() {
	atomic.AddUint64(&m.resolveCacheMisses, 1)
}

// IncResolveOutcome increments the counter for a resolution outcome.
func (m *InMemoryRecorder) IncResolveOutcome(outcome string) {
	m.mu.Lock()
	m.resolveOutcomes[outcome]++
	m.mu.Unlock()
}

// ObserveResolveDuration records resolution duration.
func (m *InMemoryRecorder) ObserveResolveDuration(duration time.Duration) {
	atomic.AddUint64(&m.resolveDurationCount, 1)
	atomic.AddInt64(&m.resolveDurationTotalNs, duration.Nanoseconds())
}

// IncLinkCreated increments the link created counter.
func (m *InMemoryRecorder) IncLinkCreated() {
	atomic.AddUint64(&m.linksCreated, 1)
}

// IncLinkUpdated increments the link updated counter.
func (m *InMemoryRecorder) IncLinkUpdated() {
	atomic.AddUint64(&m.linksUpdated, 1)
}

// IncLinkDeleted increments the link deleted counter.
func (m *InMemoryRecorder) IncLinkDeleted() {
	atomic.AddUint64(&m.linksDeleted, 1)
}

// IncClickEventPublished increments the publish counter for a status.
func (m *InMemoryRecorder) IncClickEventPublished(status string) {
	m.mu.Lock()
	m.eventsPublished[status]++
	m.mu.Unlock()
}

// IncClickEventConsumed increments the consume counter for a status.
func (m *InMemoryRecorder) IncClickEventConsumed(status string) {
	m.mu.Lock()
	m.eventsConsumed[status]++
	m.mu.Unlock()
}

// ObserveConsumeLag records the delay between click and persistence.
func (m *InMemoryRecorder) ObserveConsumeLag(lag time.Duration) {
	atomic.AddUint64(&m.consumeLagCount, 1)
	atomic.AddInt64(&m.consumeLagTotalNs, lag.Nanoseconds())
}

func copyCounters(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
