package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/shortlink/shortlink/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "shortlink_resolve_cache_hits_total %d\n", snap.ResolveCacheHits)
	writeMetric(w, "shortlink_resolve_cache_misses_total %d\n", snap.ResolveCacheMisses)
	writeLabeledCounters(w, "shortlink_resolve_outcomes_total", "outcome", snap.ResolveOutcomes)
	writeMetric(w, "shortlink_resolve_duration_seconds_count %d\n", snap.ResolveDurationCount)
	writeMetric(w, "shortlink_resolve_duration_seconds_sum %.6f\n", float64(snap.ResolveDurationTotalNs)/1e9)

	writeMetric(w, "shortlink_links_created_total %d\n", snap.LinksCreated)
	writeMetric(w, "shortlink_links_updated_total %d\n", snap.LinksUpdated)
	writeMetric(w, "shortlink_links_deleted_total %d\n", snap.LinksDeleted)

	writeLabeledCounters(w, "shortlink_click_events_published_total", "status", snap.EventsPublished)
	writeLabeledCounters(w, "shortlink_click_events_consumed_total", "status", snap.EventsConsumed)

	writeMetric(w, "shortlink_consume_lag_seconds_count %d\n", snap.ConsumeLagCount)
	writeMetric(w, "shortlink_consume_lag_seconds_sum %.6f\n", float64(snap.ConsumeLagTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// writeLabeledCounters emits one line per label value, sorted for a
// stable exposition order.
func writeLabeledCounters(w http.ResponseWriter, name, label string, counters map[string]uint64) {
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, k, counters[k])
	}
}
