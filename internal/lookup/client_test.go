package lookup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLinkByCode_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/internal/links/by-code/abc12345" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"short_code":"abc12345","original_url":"https://example.com","is_active":true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	entry, err := client.LinkByCode(context.Background(), "abc12345")
	if err != nil {
		t.Fatalf("LinkByCode failed: %v", err)
	}

	if entry.OriginalURL != "https://example.com" {
		t.Errorf("OriginalURL = %s, want https://example.com", entry.OriginalURL)
	}
	if !entry.IsActive {
		t.Error("IsActive should be true")
	}
}

func TestLinkByCode_InactiveLinkStillServed(t *testing.T) {
	t.Parallel()

	// The lookup returns any known code; validity is the caller's call.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"short_code":"abc12345","original_url":"https://example.com","is_active":false}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	entry, err := client.LinkByCode(context.Background(), "abc12345")
	if err != nil {
		t.Fatalf("LinkByCode failed: %v", err)
	}
	if entry.IsActive {
		t.Error("IsActive should be false")
	}
}

func TestLinkByCode_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	_, err := client.LinkByCode(context.Background(), "nosuch00")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLinkByCode_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	_, err := client.LinkByCode(context.Background(), "abc12345")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for 5xx, got %v", err)
	}
}

func TestLinkByCode_Unreachable(t *testing.T) {
	t.Parallel()

	// Closed server: transport error, not ErrNotFound.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, 200*time.Millisecond)

	_, err := client.LinkByCode(context.Background(), "abc12345")
	if err == nil {
		t.Fatal("expected transport error, got nil")
	}
}

func TestLinkByCode_MalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{broken`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	_, err := client.LinkByCode(context.Background(), "abc12345")
	if err == nil {
		t.Fatal("expected decode error, got nil")
	}
}

func TestLinkByCode_EscapesShortCode(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	_, _ = client.LinkByCode(context.Background(), "a/b c")
	if gotPath != "/internal/links/by-code/a%2Fb%20c" {
		t.Errorf("path = %q, want escaped code", gotPath)
	}
}
