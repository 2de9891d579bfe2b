package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shortlink/shortlink/internal/model"
)

// InsertHit appends a hit record to the hit store.
// The table is append-only and has no dedup constraint: a redelivered
// click event produces an additional row, which analytics tolerates.
func (r *Repository) InsertHit(ctx context.Context, hit *model.HitRecord) error {
	query := `
		INSERT INTO link_hits (id, short_code, ip_address, user_agent, referrer, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		hit.ID,
		hit.ShortCode,
		nullableString(hit.IPAddress),
		nullableString(hit.UserAgent),
		nullableString(hit.Referrer),
		hit.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert hit: %w", err)
	}

	return nil
}

// CountHits returns the number of recorded hits for a short code.
// Used by tests and operational tooling; there is no public analytics
// read API.
func (r *Repository) CountHits(ctx context.Context, shortCode string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM link_hits WHERE short_code = $1`, shortCode,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count hits: %w", err)
	}

	return count, nil
}

// HitsSince returns hits for a short code recorded after the given time,
// newest first.
func (r *Repository) HitsSince(ctx context.Context, shortCode string, since time.Time) ([]*model.HitRecord, error) {
	query := `
		SELECT id, short_code, COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(referrer, ''), timestamp
		FROM link_hits
		WHERE short_code = $1 AND timestamp > $2
		ORDER BY timestamp DESC
	`

	rows, err := r.pool.Query(ctx, query, shortCode, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query hits: %w", err)
	}
	defer rows.Close()

	var hits []*model.HitRecord
	for rows.Next() {
		var hit model.HitRecord
		if err := rows.Scan(&hit.ID, &hit.ShortCode, &hit.IPAddress, &hit.UserAgent, &hit.Referrer, &hit.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		hits = append(hits, &hit)
	}

	return hits, rows.Err()
}

// nullableString returns nil for empty strings so optional columns store NULL.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
