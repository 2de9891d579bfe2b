// Package lookup provides the HTTP client for the internal link lookup API.
// The redirect service uses it as the authoritative fallback on cache miss.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shortlink/shortlink/internal/model"
)

const (
	// DialTimeout is the connection timeout.
	DialTimeout = 2 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 2 * time.Second
	// maxBodySize caps the lookup response body.
	maxBodySize = 64 * 1024
)

// ErrNotFound is returned for any non-success lookup response.
// The resolution path treats unknown codes and unreachable lookups the
// same way; a redirect endpoint has no partial-success state.
var ErrNotFound = errors.New("link not found")

// Client calls the internal link lookup API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a lookup client with bounded timeouts.
// timeout covers the whole request; a hung lookup service must never
// hang a resolution.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   DialTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ResponseHeaderTimeout: ResponseHeaderTimeout,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

// LinkByCode fetches the link projection for a short code.
// Returns ErrNotFound for any non-2xx response, including 404.
// The fetched projection is used only for the current request; it is
// never written back into the cache (population is write-side only).
func (c *Client) LinkByCode(ctx context.Context, shortCode string) (*model.CacheEntry, error) {
	endpoint := c.baseURL + "/internal/links/by-code/" + url.PathEscape(shortCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrNotFound
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read lookup response: %w", err)
	}

	entry, err := model.DecodeCacheEntry(body)
	if err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}
	if entry.ShortCode == "" {
		entry.ShortCode = shortCode
	}

	return entry, nil
}
