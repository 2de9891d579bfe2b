package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shortlink/shortlink/internal/cache"
	"github.com/shortlink/shortlink/internal/handler/dto"
	"github.com/shortlink/shortlink/internal/middleware"
	"github.com/shortlink/shortlink/internal/model"
	"github.com/shortlink/shortlink/internal/resolver"
)

// stubCache serves canned projections to the resolver.
type stubCache struct {
	entries map[string]*model.CacheEntry
}

func (s *stubCache) GetEntry(ctx context.Context, shortCode string) (*model.CacheEntry, error) {
	entry, ok := s.entries[shortCode]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return entry, nil
}

// stubLookup always misses; tests drive decisions through the cache.
type stubLookup struct{}

func (s *stubLookup) LinkByCode(ctx context.Context, shortCode string) (*model.CacheEntry, error) {
	return nil, cache.ErrCacheMiss
}

func newRedirectRouter(entries map[string]*model.CacheEntry) *chi.Mux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	res := resolver.New(&stubCache{entries: entries}, &stubLookup{}, nil, logger, nil)

	// Mirror the redirect server's middleware chain; the hardening
	// headers asserted below come from Security, not the handler.
	secCfg := middleware.DefaultSecurityConfig()
	secCfg.CacheControl = "private, max-age=0"

	h := NewRedirectHandler(res, logger)
	r := chi.NewRouter()
	r.Use(middleware.Security(secCfg))
	r.Get("/{shortCode}", h.Redirect)
	return r
}

func TestRedirect_Found(t *testing.T) {
	router := newRedirectRouter(map[string]*model.CacheEntry{
		"abc12345": {ShortCode: "abc12345", OriginalURL: "https://example.com/page", IsActive: true},
	})

	req := httptest.NewRequest(http.MethodGet, "/abc12345", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://example.com/page" {
		t.Errorf("Location = %q, want https://example.com/page", loc)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected X-Content-Type-Options header")
	}
	if rec.Header().Get("Cache-Control") != "private, max-age=0" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
}

func TestRedirect_NotFound(t *testing.T) {
	router := newRedirectRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/nosuch00", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var response dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Code != "LINK_NOT_FOUND" {
		t.Errorf("error code = %s, want LINK_NOT_FOUND", response.Code)
	}
}

func TestRedirect_Gone(t *testing.T) {
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name  string
		entry *model.CacheEntry
	}{
		{
			name:  "inactive",
			entry: &model.CacheEntry{ShortCode: "gone0001", OriginalURL: "https://example.com", IsActive: false},
		},
		{
			name:  "expired",
			entry: &model.CacheEntry{ShortCode: "gone0001", OriginalURL: "https://example.com", IsActive: true, ExpiresAt: &past},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRedirectRouter(map[string]*model.CacheEntry{"gone0001": tt.entry})

			req := httptest.NewRequest(http.MethodGet, "/gone0001", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusGone {
				t.Fatalf("expected status 410, got %d", rec.Code)
			}

			var response dto.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Code != "LINK_GONE" {
				t.Errorf("error code = %s, want LINK_GONE", response.Code)
			}
		})
	}
}

func TestRedirect_BlankCode(t *testing.T) {
	router := newRedirectRouter(nil)

	// Whitespace-only code reaches the handler via the route param.
	req := httptest.NewRequest(http.MethodGet, "/%20%20", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var response dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Code != "CODE_REQUIRED" {
		t.Errorf("error code = %s, want CODE_REQUIRED", response.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "forwarded_for_single",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:    "203.0.113.7",
		},
		{
			name:    "forwarded_for_chain_takes_first",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1, 10.0.0.2"},
			want:    "203.0.113.7",
		},
		{
			name:    "real_ip",
			headers: map[string]string{"X-Real-IP": "198.51.100.3"},
			want:    "198.51.100.3",
		},
		{
			name:   "remote_addr_fallback",
			remote: "192.0.2.1:4242",
			want:   "192.0.2.1:4242",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if tt.remote != "" {
				req.RemoteAddr = tt.remote
			}

			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
