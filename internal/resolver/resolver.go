// Package resolver implements the redirect decision path: cache-aside
// read, authoritative fallback, validity check, and detached click
// event dispatch.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shortlink/shortlink/internal/cache"
	"github.com/shortlink/shortlink/internal/metrics"
	"github.com/shortlink/shortlink/internal/model"
)

// Outcome classifies a resolution result.
type Outcome string

// Resolution outcomes. These four are the entire user-visible failure
// surface of the redirect endpoint.
const (
	OutcomeRedirect   Outcome = "redirect"
	OutcomeGone       Outcome = "gone"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeBadRequest Outcome = "bad_request"
)

// Decision is the terminal result of resolving a short code.
type Decision struct {
	Outcome  Outcome
	URL      string // set only for OutcomeRedirect
	CacheHit bool
}

// ClickContext carries request metadata for the click event.
type ClickContext struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// EntryCache reads cached link projections.
type EntryCache interface {
	GetEntry(ctx context.Context, shortCode string) (*model.CacheEntry, error)
}

// LinkLookup fetches the authoritative projection on cache miss.
type LinkLookup interface {
	LinkByCode(ctx context.Context, shortCode string) (*model.CacheEntry, error)
}

// ClickPublisher dispatches click events without blocking the caller.
type ClickPublisher interface {
	PublishAsync(event model.ClickEvent)
}

// Default timeouts for the two suspension points on the resolution path.
const (
	DefaultCacheTimeout  = 150 * time.Millisecond
	DefaultLookupTimeout = 2 * time.Second
)

// Resolver produces redirect decisions for short codes.
type Resolver struct {
	cache         EntryCache
	lookup        LinkLookup
	publisher     ClickPublisher
	logger        *slog.Logger
	metrics       metrics.Recorder
	cacheTimeout  time.Duration
	lookupTimeout time.Duration
}

// New creates a Resolver. publisher may be nil to disable click capture.
func New(entryCache EntryCache, lookup LinkLookup, publisher ClickPublisher, logger *slog.Logger, recorder metrics.Recorder) *Resolver {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Resolver{
		cache:         entryCache,
		lookup:        lookup,
		publisher:     publisher,
		logger:        logger.With("component", "resolver"),
		metrics:       recorder,
		cacheTimeout:  DefaultCacheTimeout,
		lookupTimeout: DefaultLookupTimeout,
	}
}

// SetCacheTimeout overrides the cache read timeout.
func (r *Resolver) SetCacheTimeout(timeout time.Duration) {
	if timeout > 0 {
		r.cacheTimeout = timeout
	}
}

// SetLookupTimeout overrides the fallback lookup timeout.
func (r *Resolver) SetLookupTimeout(timeout time.Duration) {
	if timeout > 0 {
		r.lookupTimeout = timeout
	}
}

// Resolve runs the decision state machine for one request.
//
// Blank code short-circuits to BadRequest without touching cache or
// fallback. Otherwise the cache is consulted first; a miss (or any
// cache failure, which degrades to a miss) falls back to the
// authoritative lookup. The fetched projection serves only this
// request: the resolver never warms the cache, population is owned by
// the write side. A Redirect decision dispatches exactly one click
// event on a detached path whose outcome is not observed here.
func (r *Resolver) Resolve(ctx context.Context, shortCode string, click ClickContext) Decision {
	start := time.Now()
	defer func() {
		r.metrics.ObserveResolveDuration(time.Since(start))
	}()

	if strings.TrimSpace(shortCode) == "" {
		return r.decided(Decision{Outcome: OutcomeBadRequest})
	}

	entry, cacheHit := r.fromCache(ctx, shortCode)
	if entry == nil {
		fetched, err := r.fetchFallback(ctx, shortCode)
		if err != nil {
			// Unknown code and unreachable lookup collapse to the same
			// outcome; the endpoint has no partial-success state.
			return r.decided(Decision{Outcome: OutcomeNotFound})
		}
		entry = fetched
	}

	decision := r.validate(entry, cacheHit)
	if decision.Outcome == OutcomeRedirect && r.publisher != nil {
		r.publisher.PublishAsync(model.ClickEvent{
			ShortCode:  shortCode,
			ClientIP:   click.ClientIP,
			UserAgent:  click.UserAgent,
			Referrer:   click.Referrer,
			OccurredAt: time.Now().UTC(),
		})
	}

	return r.decided(decision)
}

// fromCache reads the cached projection with a bounded timeout.
// Misses, malformed entries, and cache transport failures all degrade
// to "no entry" so the fallback can decide.
func (r *Resolver) fromCache(ctx context.Context, shortCode string) (*model.CacheEntry, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.cacheTimeout)
	defer cancel()

	entry, err := r.cache.GetEntry(ctx, shortCode)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn("cache read failed, falling back",
				"short_code", shortCode,
				"error", err,
			)
		}
		r.metrics.IncResolveCacheMiss()
		return nil, false
	}

	r.metrics.IncResolveCacheHit()
	return entry, true
}

// fetchFallback calls the authoritative lookup with a bounded timeout.
func (r *Resolver) fetchFallback(ctx context.Context, shortCode string) (*model.CacheEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	entry, err := r.lookup.LinkByCode(ctx, shortCode)
	if err != nil {
		r.logger.Debug("fallback lookup failed",
			"short_code", shortCode,
			"error", err,
		)
		return nil, err
	}
	return entry, nil
}

// validate applies the terminal checks to a projection.
func (r *Resolver) validate(entry *model.CacheEntry, cacheHit bool) Decision {
	if entry.OriginalURL == "" {
		return Decision{Outcome: OutcomeNotFound, CacheHit: cacheHit}
	}
	if !entry.IsActive || entry.IsExpired() {
		return Decision{Outcome: OutcomeGone, CacheHit: cacheHit}
	}
	return Decision{Outcome: OutcomeRedirect, URL: entry.OriginalURL, CacheHit: cacheHit}
}

func (r *Resolver) decided(d Decision) Decision {
	r.metrics.IncResolveOutcome(string(d.Outcome))
	return d
}
