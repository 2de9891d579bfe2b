package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// collisionGuardService builds a LinkService whose generator yields
// code-1, code-2, ... and whose existence check collides for the first
// n candidates.
func collisionGuardService(collisions int) (*LinkService, *int) {
	generated := 0
	svc := &LinkService{
		generate: func() string {
			generated++
			return fmt.Sprintf("code-%d", generated)
		},
		codeExists: func(_ context.Context, code string) (bool, error) {
			var n int
			fmt.Sscanf(code, "code-%d", &n)
			return n <= collisions, nil
		},
	}
	return svc, &generated
}

func TestUniqueShortCode_FirstCandidateAccepted(t *testing.T) {
	t.Parallel()

	svc, generated := collisionGuardService(0)

	code, err := svc.uniqueShortCode(context.Background())
	if err != nil {
		t.Fatalf("uniqueShortCode failed: %v", err)
	}
	if code != "code-1" {
		t.Errorf("code = %q, want code-1", code)
	}
	if *generated != 1 {
		t.Errorf("generated %d candidates, want 1", *generated)
	}
}

func TestUniqueShortCode_RetriesPastCollisions(t *testing.T) {
	t.Parallel()

	svc, generated := collisionGuardService(2)

	code, err := svc.uniqueShortCode(context.Background())
	if err != nil {
		t.Fatalf("uniqueShortCode failed: %v", err)
	}
	if code != "code-3" {
		t.Errorf("code = %q, want the first non-colliding candidate code-3", code)
	}
	if *generated != 3 {
		t.Errorf("generated %d candidates, want 3", *generated)
	}
}

func TestUniqueShortCode_FinalCandidateAcceptedUnchecked(t *testing.T) {
	t.Parallel()

	// Every existence check collides. The guard must stop at the fifth
	// candidate and hand it back anyway; a real residual collision is
	// the insert's unique constraint to report, not a reason to loop.
	svc, generated := collisionGuardService(1000)

	code, err := svc.uniqueShortCode(context.Background())
	if err != nil {
		t.Fatalf("uniqueShortCode failed: %v", err)
	}
	if code != fmt.Sprintf("code-%d", maxCollisionRetries) {
		t.Errorf("code = %q, want the final candidate code-%d", code, maxCollisionRetries)
	}
	if *generated != maxCollisionRetries {
		t.Errorf("generated %d candidates, want %d", *generated, maxCollisionRetries)
	}
}

func TestUniqueShortCode_ExistsCheckError(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("store unavailable")
	svc := &LinkService{
		generate:   func() string { return "code-1" },
		codeExists: func(context.Context, string) (bool, error) { return false, storeErr },
	}

	_, err := svc.uniqueShortCode(context.Background())
	if !errors.Is(err, storeErr) {
		t.Fatalf("error = %v, want %v", err, storeErr)
	}
}
