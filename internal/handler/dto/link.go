// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/shortlink/shortlink/internal/model"
)

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	OriginalURL string     `json:"original_url"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	OwnerID     string     `json:"owner_id,omitempty"`
}

// UpdateLinkRequest represents the request body for updating a link.
type UpdateLinkRequest struct {
	OriginalURL *string    `json:"original_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClearExpiry bool       `json:"clear_expiry,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
}

// LinkResponse represents a link in API responses.
type LinkResponse struct {
	ID          string     `json:"id"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	OwnerID     string     `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

// LinkListResponse represents a page of links.
type LinkListResponse struct {
	Data []LinkResponse `json:"data"`
	Page int            `json:"page"`
}

// LookupResponse is the internal lookup API payload consumed by the
// redirect service. Its field set is the projection wire contract.
type LookupResponse struct {
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToLinkResponse converts a Link model to LinkResponse DTO.
func ToLinkResponse(link *model.Link) *LinkResponse {
	return &LinkResponse{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		IsActive:    link.IsActive,
		ExpiresAt:   link.ExpiresAt,
		OwnerID:     link.OwnerID,
		CreatedAt:   link.CreatedAt,
	}
}

// ToLinkListResponse converts a slice of Link models to LinkListResponse.
func ToLinkListResponse(links []*model.Link, page int) *LinkListResponse {
	responses := make([]LinkResponse, len(links))
	for i, link := range links {
		responses[i] = *ToLinkResponse(link)
	}
	return &LinkListResponse{
		Data: responses,
		Page: page,
	}
}

// ToLookupResponse converts a Link model to the lookup projection.
func ToLookupResponse(link *model.Link) *LookupResponse {
	return &LookupResponse{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		IsActive:    link.IsActive,
		ExpiresAt:   link.ExpiresAt,
	}
}
