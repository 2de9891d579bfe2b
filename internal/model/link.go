// Package model defines domain entities for the application.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Link represents the authoritative short link record.
// It is owned by the write-side API; the redirect path only ever
// sees projections of it (CacheEntry).
type Link struct {
	ID          string     `json:"id"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	OwnerID     string     `json:"owner_id"`
}

// IsExpired returns true if the link has a past expiry time.
func (l *Link) IsExpired() bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(time.Now())
}

// ToCacheEntry builds the redirect projection of the link.
func (l *Link) ToCacheEntry() *CacheEntry {
	return &CacheEntry{
		ShortCode:   l.ShortCode,
		OriginalURL: l.OriginalURL,
		IsActive:    l.IsActive,
		ExpiresAt:   l.ExpiresAt,
	}
}

// CacheEntry is the denormalized projection of a Link used on the
// redirect path. It is not authoritative: it carries no version or
// timestamp, and staleness is handled purely by the write-side
// invalidation protocol.
type CacheEntry struct {
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// cacheEntryWire mirrors CacheEntry with loosely-typed optional fields
// so that partial or mistyped payloads degrade instead of failing.
type cacheEntryWire struct {
	ShortCode   string          `json:"short_code"`
	OriginalURL string          `json:"original_url"`
	IsActive    *bool           `json:"is_active"`
	ExpiresAt   json.RawMessage `json:"expires_at"`
}

// DecodeCacheEntry parses a serialized projection.
// Field tolerance rules:
//   - is_active absent: defaults to true
//   - expires_at absent or non-string: treated as no expiry
//   - original_url absent: the entry still decodes; callers map it to not-found
//
// Structurally invalid JSON is an error, and so is an expires_at string
// that does not parse: a projection whose expiry cannot be read must
// not be served, it has to force a fallback to the authoritative store.
func DecodeCacheEntry(data []byte) (*CacheEntry, error) {
	var wire cacheEntryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}

	entry := &CacheEntry{
		ShortCode:   wire.ShortCode,
		OriginalURL: wire.OriginalURL,
		IsActive:    true,
	}

	if wire.IsActive != nil {
		entry.IsActive = *wire.IsActive
	}

	if len(wire.ExpiresAt) > 0 {
		var raw string
		if err := json.Unmarshal(wire.ExpiresAt, &raw); err == nil && raw != "" {
			ts, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, fmt.Errorf("parse expires_at: %w", err)
			}
			entry.ExpiresAt = &ts
		}
	}

	return entry, nil
}

// IsExpired returns true if the projection carries a past expiry time.
func (e *CacheEntry) IsExpired() bool {
	return e.ExpiresAt != nil && e.ExpiresAt.Before(time.Now())
}
