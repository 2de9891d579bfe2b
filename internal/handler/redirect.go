package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shortlink/shortlink/internal/handler/dto"
	"github.com/shortlink/shortlink/internal/resolver"
)

// RedirectHandler handles redirect requests.
type RedirectHandler struct {
	resolver *resolver.Resolver
	logger   *slog.Logger
}

// NewRedirectHandler creates a new RedirectHandler.
func NewRedirectHandler(res *resolver.Resolver, logger *slog.Logger) *RedirectHandler {
	return &RedirectHandler{
		resolver: res,
		logger:   logger,
	}
}

// Redirect handles GET /{code} for URL redirection.
// The four possible responses are the full error surface of this
// endpoint: 302, 400, 404, 410. Anything the analytics side-path does
// never shows up here.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	start := time.Now()
	decision := h.resolver.Resolve(r.Context(), shortCode, resolver.ClickContext{
		ClientIP:  getClientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
		Referrer:  r.Header.Get("Referer"),
	})
	duration := time.Since(start)

	switch decision.Outcome {
	case resolver.OutcomeRedirect:
		h.logger.Info("redirect_success",
			"short_code", shortCode,
			"cache_hit", decision.CacheHit,
			"duration_ms", float64(duration.Microseconds())/1000,
		)

		// Hardening headers come from the Security middleware.
		http.Redirect(w, r, decision.URL, http.StatusFound)

	case resolver.OutcomeBadRequest:
		h.logger.Info("redirect_bad_request",
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		h.writeError(w, http.StatusBadRequest, "CODE_REQUIRED", "Short code is required")

	case resolver.OutcomeGone:
		h.logger.Info("redirect_gone",
			"short_code", shortCode,
			"cache_hit", decision.CacheHit,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		h.writeError(w, http.StatusGone, "LINK_GONE", "Link is no longer available")

	default:
		h.logger.Info("redirect_not_found",
			"short_code", shortCode,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		h.writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
	}
}

// writeError writes a JSON error response for redirect failures.
func (h *RedirectHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// getClientIP extracts the client IP address from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// Take the first IP in the chain
		for i := 0; i < len(ip); i++ {
			if ip[i] == ',' {
				return ip[:i]
			}
		}
		return ip
	}
	// Check X-Real-IP
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	// Fall back to RemoteAddr
	return r.RemoteAddr
}
