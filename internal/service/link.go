// Package service provides business logic for the link write side.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shortlink/shortlink/internal/cache"
	"github.com/shortlink/shortlink/internal/metrics"
	"github.com/shortlink/shortlink/internal/model"
	"github.com/shortlink/shortlink/internal/repository"
	"github.com/shortlink/shortlink/internal/shortcode"
)

// Service errors.
var (
	ErrInvalidOriginalURL = errors.New("invalid original URL")
	ErrLinkNotFound       = errors.New("link not found")
	ErrShortCodeExists    = errors.New("short code already exists")
	ErrExpiresInPast      = errors.New("expires_at must be in the future")
)

const (
	maxOriginalURLLength = 2048

	// maxCollisionRetries bounds the uniqueness guard. The final
	// candidate is kept even when its existence check still collides;
	// at 62^8 the residual risk is accepted rather than eliminated.
	maxCollisionRetries = 5
)

// LinkService owns link mutations and the cache invalidation protocol
// that keeps the redirect path consistent with them.
type LinkService struct {
	repo    *repository.Repository
	cache   *cache.Cache
	logger  *slog.Logger
	metrics metrics.Recorder

	// generate and codeExists back the uniqueness guard and are
	// swappable in tests to force collisions.
	generate   func() string
	codeExists func(context.Context, string) (bool, error)
}

// NewLinkService creates a new LinkService.
func NewLinkService(repo *repository.Repository, entryCache *cache.Cache, logger *slog.Logger, recorder metrics.Recorder) *LinkService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &LinkService{
		repo:    repo,
		cache:   entryCache,
		logger:  logger.With("component", "service.link"),
		metrics: recorder,
		generate: func() string {
			return shortcode.Generate(shortcode.DefaultLength)
		},
		codeExists: repo.ShortCodeExists,
	}
}

// CreateLinkInput defines input for creating a link.
type CreateLinkInput struct {
	OriginalURL string
	ExpiresAt   *time.Time
	OwnerID     string
}

// CreateLink creates a new short link and write-through populates the
// cache so the new code resolves without a fallback round-trip.
func (s *LinkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error) {
	if err := validateOriginalURL(input.OriginalURL); err != nil {
		return nil, err
	}

	if input.ExpiresAt != nil && input.ExpiresAt.Before(time.Now()) {
		return nil, ErrExpiresInPast
	}

	ownerID := input.OwnerID
	if ownerID == "" {
		ownerID = "anonymous"
	}

	code, err := s.uniqueShortCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate short code: %w", err)
	}

	link := &model.Link{
		ID:          ulid.Make().String(),
		ShortCode:   code,
		OriginalURL: input.OriginalURL,
		OwnerID:     ownerID,
		IsActive:    true,
		ExpiresAt:   input.ExpiresAt,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateLink(ctx, link); err != nil {
		if errors.Is(err, repository.ErrShortCodeExists) {
			return nil, ErrShortCodeExists
		}
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	s.metrics.IncLinkCreated()

	// Write-through. A failed population is benign: the next resolve
	// for this code falls back to the authoritative store.
	if err := s.cache.SetEntry(ctx, link.ToCacheEntry()); err != nil {
		s.logger.Warn("write-through cache population failed",
			"short_code", link.ShortCode,
			"error", err,
		)
	}

	return link, nil
}

// GetLink retrieves a link by ID.
func (s *LinkService) GetLink(ctx context.Context, id string) (*model.Link, error) {
	link, err := s.repo.GetLinkByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

// ListLinks retrieves a page of links, newest first.
func (s *LinkService) ListLinks(ctx context.Context, ownerID string, page, pageSize int) ([]*model.Link, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	return s.repo.ListLinks(ctx, ownerID, (page-1)*pageSize, pageSize)
}

// UpdateLinkInput defines input for updating a link.
type UpdateLinkInput struct {
	ID          string
	OriginalURL *string
	ExpiresAt   *time.Time
	ClearExpiry bool // If true, set expires_at to nil
	IsActive    *bool
}

// UpdateLink updates a link's mutable fields and evicts its cache entry.
// The eviction completes before this call returns: the write is not
// acknowledged while a pre-mutation projection could still be served
// beyond the benign staleness window.
func (s *LinkService) UpdateLink(ctx context.Context, input UpdateLinkInput) (*model.Link, error) {
	link, err := s.repo.GetLinkByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	if input.OriginalURL != nil {
		if err := validateOriginalURL(*input.OriginalURL); err != nil {
			return nil, err
		}
		link.OriginalURL = *input.OriginalURL
	}

	if input.ClearExpiry {
		link.ExpiresAt = nil
	} else if input.ExpiresAt != nil {
		if input.ExpiresAt.Before(time.Now()) {
			return nil, ErrExpiresInPast
		}
		link.ExpiresAt = input.ExpiresAt
	}

	if input.IsActive != nil {
		link.IsActive = *input.IsActive
	}

	if err := s.repo.UpdateLink(ctx, link); err != nil {
		return nil, err
	}

	s.metrics.IncLinkUpdated()

	// Evict, never re-populate: the next resolve must fall back for
	// fresh data.
	if err := s.cache.DeleteEntry(ctx, link.ShortCode); err != nil {
		return nil, fmt.Errorf("evict cache entry: %w", err)
	}

	return link, nil
}

// DeleteLink removes a link and evicts its cache entry before returning.
func (s *LinkService) DeleteLink(ctx context.Context, id string) error {
	link, err := s.repo.GetLinkByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return ErrLinkNotFound
		}
		return err
	}

	if err := s.repo.DeleteLink(ctx, id); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return ErrLinkNotFound
		}
		return err
	}

	s.metrics.IncLinkDeleted()

	if err := s.cache.DeleteEntry(ctx, link.ShortCode); err != nil {
		return fmt.Errorf("evict cache entry: %w", err)
	}

	return nil
}

// uniqueShortCode generates a code with a bounded collision guard:
// up to maxCollisionRetries candidates are checked against the store,
// and the last one is accepted even if its check came back positive.
// A residual collision then surfaces as a unique violation on insert.
func (s *LinkService) uniqueShortCode(ctx context.Context) (string, error) {
	var code string
	for i := 0; i < maxCollisionRetries; i++ {
		code = s.generate()

		exists, err := s.codeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return code, nil
}

// validateOriginalURL validates a destination URL.
func validateOriginalURL(raw string) error {
	if raw == "" {
		return ErrInvalidOriginalURL
	}

	if len(raw) > maxOriginalURLLength {
		return ErrInvalidOriginalURL
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidOriginalURL
	}

	// Only allow http and https schemes
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidOriginalURL
	}

	// Must have a host
	if parsed.Host == "" {
		return ErrInvalidOriginalURL
	}

	return nil
}
