package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateOriginalURL(t *testing.T) {
	t.Parallel()

	longURL := "https://example.com/" + strings.Repeat("a", maxOriginalURLLength)

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"empty", "", ErrInvalidOriginalURL},
		{"invalid_scheme", "ftp://example.com", ErrInvalidOriginalURL},
		{"javascript_scheme", "javascript:alert(1)", ErrInvalidOriginalURL},
		{"missing_host", "https://", ErrInvalidOriginalURL},
		{"not_a_url", "not a url at all", ErrInvalidOriginalURL},
		{"too_long", longURL, ErrInvalidOriginalURL},
		{"valid_https", "https://example.com/path?q=1", nil},
		{"valid_http", "http://example.com", nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validateOriginalURL(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("validateOriginalURL(%q) = %v, want %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestCreateLinkValidationErrors(t *testing.T) {
	t.Parallel()

	svc := &LinkService{}
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name    string
		input   CreateLinkInput
		wantErr error
	}{
		{
			name:    "invalid_url",
			input:   CreateLinkInput{OriginalURL: "ftp://example.com"},
			wantErr: ErrInvalidOriginalURL,
		},
		{
			name:    "empty_url",
			input:   CreateLinkInput{},
			wantErr: ErrInvalidOriginalURL,
		},
		{
			name:    "expiry_in_past",
			input:   CreateLinkInput{OriginalURL: "https://example.com", ExpiresAt: &past},
			wantErr: ErrExpiresInPast,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.CreateLink(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateLink error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
