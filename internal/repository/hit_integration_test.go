//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shortlink/shortlink/internal/testutil"
)

// ============================================================================
// Hit Store Integration Tests
// ============================================================================

func TestIntegrationHitStore_InsertHit(t *testing.T) {
	ctx, repo := newHitTestEnv(t)

	shortCode := testutil.UniqueShortCode("hit")
	hit := testutil.NewTestHit(t, shortCode)
	hit.ID = uuid.NewString()

	if err := repo.InsertHit(ctx, hit); err != nil {
		t.Fatalf("InsertHit failed: %v", err)
	}

	count, err := repo.CountHits(ctx, shortCode)
	if err != nil {
		t.Fatalf("CountHits failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountHits = %d, want 1", count)
	}
}

func TestIntegrationHitStore_InsertHit_OptionalFieldsEmpty(t *testing.T) {
	ctx, repo := newHitTestEnv(t)

	shortCode := testutil.UniqueShortCode("bare")
	hit := testutil.NewTestHit(t, shortCode)
	hit.ID = uuid.NewString()
	hit.IPAddress = ""
	hit.UserAgent = ""
	hit.Referrer = ""

	if err := repo.InsertHit(ctx, hit); err != nil {
		t.Fatalf("InsertHit with empty optional fields failed: %v", err)
	}

	hits, err := repo.HitsSince(ctx, shortCode, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("HitsSince failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("HitsSince returned %d hits, want 1", len(hits))
	}
	if hits[0].IPAddress != "" || hits[0].UserAgent != "" || hits[0].Referrer != "" {
		t.Error("optional fields should read back empty")
	}
}

func TestIntegrationHitStore_DuplicatesAccepted(t *testing.T) {
	ctx, repo := newHitTestEnv(t)

	// At-least-once delivery upstream means the same click can be
	// persisted more than once with distinct hit IDs. The store must
	// accept both rows.
	shortCode := testutil.UniqueShortCode("redeliver")
	base := testutil.NewTestHit(t, shortCode)

	first := *base
	first.ID = uuid.NewString()
	second := *base
	second.ID = uuid.NewString()

	if err := repo.InsertHit(ctx, &first); err != nil {
		t.Fatalf("InsertHit (first) failed: %v", err)
	}
	if err := repo.InsertHit(ctx, &second); err != nil {
		t.Fatalf("InsertHit (redelivery) failed: %v", err)
	}

	count, err := repo.CountHits(ctx, shortCode)
	if err != nil {
		t.Fatalf("CountHits failed: %v", err)
	}
	if count != 2 {
		t.Errorf("CountHits = %d, want 2 (duplicates accepted)", count)
	}
}

func TestIntegrationHitStore_HitsSince(t *testing.T) {
	ctx, repo := newHitTestEnv(t)

	shortCode := testutil.UniqueShortCode("since")

	old := testutil.NewTestHit(t, shortCode)
	old.ID = uuid.NewString()
	old.Timestamp = time.Now().Add(-2 * time.Hour).UTC()

	recent := testutil.NewTestHit(t, shortCode)
	recent.ID = uuid.NewString()

	if err := repo.InsertHit(ctx, old); err != nil {
		t.Fatalf("InsertHit (old) failed: %v", err)
	}
	if err := repo.InsertHit(ctx, recent); err != nil {
		t.Fatalf("InsertHit (recent) failed: %v", err)
	}

	hits, err := repo.HitsSince(ctx, shortCode, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("HitsSince failed: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("HitsSince returned %d hits, want 1", len(hits))
	}
}

func newHitTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetHitsSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset hits schema: %v", err)
	}

	return ctx, repo
}
