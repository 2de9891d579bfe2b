package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shortlink/shortlink/internal/handler/dto"
	"github.com/shortlink/shortlink/internal/repository"
	"github.com/shortlink/shortlink/internal/service"
)

// LinkHandler handles link management requests.
type LinkHandler struct {
	svc    *service.LinkService
	logger *slog.Logger
}

// NewLinkHandler creates a new LinkHandler.
func NewLinkHandler(svc *service.LinkService, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/links.
func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_BODY",
		})
		return
	}

	link, err := h.svc.CreateLink(r.Context(), service.CreateLinkInput{
		OriginalURL: req.OriginalURL,
		ExpiresAt:   req.ExpiresAt,
		OwnerID:     req.OwnerID,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToLinkResponse(link))
}

// List handles GET /api/links.
func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}

	links, err := h.svc.ListLinks(r.Context(), r.URL.Query().Get("owner_id"), page, pageSize)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLinkListResponse(links, page))
}

// Get handles GET /api/links/{id}.
func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.GetLink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLinkResponse(link))
}

// Update handles PUT /api/links/{id}.
// The response is written only after the cache eviction has completed;
// a client that sees the acknowledgement will never be served the
// pre-mutation destination from cache.
func (h *LinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_BODY",
		})
		return
	}

	link, err := h.svc.UpdateLink(r.Context(), service.UpdateLinkInput{
		ID:          chi.URLParam(r, "id"),
		OriginalURL: req.OriginalURL,
		ExpiresAt:   req.ExpiresAt,
		ClearExpiry: req.ClearExpiry,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLinkResponse(link))
}

// Delete handles DELETE /api/links/{id}.
func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteLink(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps service errors to HTTP responses.
func (h *LinkHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrLinkNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{
			Error: "link not found", Code: "LINK_NOT_FOUND",
		})
	case errors.Is(err, service.ErrInvalidOriginalURL):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "original_url must be a valid http(s) URL", Code: "INVALID_URL",
		})
	case errors.Is(err, service.ErrExpiresInPast):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "expires_at must be in the future", Code: "EXPIRES_IN_PAST",
		})
	case errors.Is(err, service.ErrShortCodeExists):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{
			Error: "short code already exists", Code: "CODE_EXISTS",
		})
	default:
		h.logger.Error("link request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error: "An internal error occurred", Code: "INTERNAL_ERROR",
		})
	}
}

// LookupHandler serves the internal link lookup API consumed by the
// redirect service. It sits inside the trust boundary and requires no
// authentication.
type LookupHandler struct {
	repo   *repository.Repository
	logger *slog.Logger
}

// NewLookupHandler creates a new LookupHandler.
func NewLookupHandler(repo *repository.Repository, logger *slog.Logger) *LookupHandler {
	return &LookupHandler{
		repo:   repo,
		logger: logger,
	}
}

// ByCode handles GET /internal/links/by-code/{code}.
// It returns the projection for any known code, active or not: validity
// is the resolver's decision, not the lookup's.
func (h *LookupHandler) ByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	link, err := h.repo.GetLinkByShortCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{
				Error: "link not found", Code: "LINK_NOT_FOUND",
			})
			return
		}
		h.logger.Error("lookup failed", "short_code", code, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error: "An internal error occurred", Code: "INTERNAL_ERROR",
		})
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLookupResponse(link))
}
