package middleware

import (
	"net/http"
)

// SecurityConfig controls the shared hardening headers.
type SecurityConfig struct {
	// IsDevelopment disables HSTS so local plain-HTTP setups work.
	IsDevelopment bool

	// CacheControl is the directive applied to every response. Empty
	// means "no-store", which fits the link API; the redirect path
	// overrides it because a 302 is per-user cacheable.
	CacheControl string
}

// DefaultSecurityConfig returns production defaults for an API surface.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		CacheControl: "no-store",
	}
}

// Security applies hardening headers to every response. Both the
// redirect server and the link API mount it ahead of their routes, so
// error bodies and health endpoints carry the same baseline as the
// redirects themselves.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	cacheControl := cfg.CacheControl
	if cacheControl == "" {
		cacheControl = "no-store"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Nothing here serves HTML.
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			h.Set("Cross-Origin-Resource-Policy", "same-origin")

			if !cfg.IsDevelopment {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
			}

			h.Set("Cache-Control", cacheControl)
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize rejects requests whose declared length exceeds maxBytes
// and caps streamed bodies at the same limit. Only the link API mounts
// it; the redirect path never reads a body.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = w.Write([]byte(`{"error":"Request body too large","code":"PAYLOAD_TOO_LARGE"}`))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			next.ServeHTTP(w, r)
		})
	}
}
