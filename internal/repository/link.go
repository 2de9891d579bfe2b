package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shortlink/shortlink/internal/model"
)

// Common errors for link repository operations.
var (
	ErrLinkNotFound    = errors.New("link not found")
	ErrShortCodeExists = errors.New("short code already exists")
)

// CreateLink inserts a new link into the database.
func (r *Repository) CreateLink(ctx context.Context, link *model.Link) error {
	query := `
		INSERT INTO links (id, short_code, original_url, owner_id, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		link.ID,
		link.ShortCode,
		link.OriginalURL,
		link.OwnerID,
		link.IsActive,
		link.ExpiresAt,
		link.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrShortCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

// GetLinkByID retrieves a link by its ID.
func (r *Repository) GetLinkByID(ctx context.Context, id string) (*model.Link, error) {
	query := `
		SELECT id, short_code, original_url, owner_id, is_active, expires_at, created_at
		FROM links
		WHERE id = $1
	`

	link, err := r.scanLink(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by ID: %w", err)
	}

	return link, nil
}

// GetLinkByShortCode retrieves a link by its short code.
// This backs the internal lookup API used by the redirect fallback.
func (r *Repository) GetLinkByShortCode(ctx context.Context, shortCode string) (*model.Link, error) {
	query := `
		SELECT id, short_code, original_url, owner_id, is_active, expires_at, created_at
		FROM links
		WHERE short_code = $1
	`

	link, err := r.scanLink(r.pool.QueryRow(ctx, query, shortCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by short code: %w", err)
	}

	return link, nil
}

// ShortCodeExists checks whether a short code is already taken.
// Used by the generation uniqueness guard.
func (r *Repository) ShortCodeExists(ctx context.Context, shortCode string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM links WHERE short_code = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, shortCode).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check short code: %w", err)
	}

	return exists, nil
}

// ListLinks retrieves links ordered by creation time, newest first.
func (r *Repository) ListLinks(ctx context.Context, ownerID string, offset, limit int) ([]*model.Link, error) {
	query := `
		SELECT id, short_code, original_url, owner_id, is_active, expires_at, created_at
		FROM links
		WHERE ($1 = '' OR owner_id = $1)
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []*model.Link
	for rows.Next() {
		link, err := r.scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

// UpdateLink updates a link's mutable fields.
func (r *Repository) UpdateLink(ctx context.Context, link *model.Link) error {
	query := `
		UPDATE links
		SET original_url = $2, is_active = $3, expires_at = $4
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		link.ID,
		link.OriginalURL,
		link.IsActive,
		link.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// DeleteLink removes a link from the store.
func (r *Repository) DeleteLink(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// scanLink scans a single row into a Link.
func (r *Repository) scanLink(row pgx.Row) (*model.Link, error) {
	var link model.Link
	var expiresAt *time.Time

	err := row.Scan(
		&link.ID,
		&link.ShortCode,
		&link.OriginalURL,
		&link.OwnerID,
		&link.IsActive,
		&expiresAt,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	link.ExpiresAt = expiresAt
	return &link, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	// PostgreSQL error code 23505 is unique_violation
	return err != nil && (strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "unique"))
}
