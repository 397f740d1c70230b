package oauth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/giantswarm/youtube-oauth/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"authentication", domain.NewAuthenticationError("no token", ""), http.StatusUnauthorized},
		{"invalid state", domain.NewInvalidStateError("mismatch"), http.StatusUnauthorized},
		{"token exchange", domain.NewTokenExchangeError("failed", nil), http.StatusUnauthorized},
		{"external service", domain.NewExternalServiceError("YouTube", "down", nil), http.StatusServiceUnavailable},
		{"invalid input", domain.NewInvalidInputError("title", "required"), http.StatusBadRequest},
		{"not found", domain.NewResourceNotFoundError("Playlist", "PL1"), http.StatusNotFound},
		{"quota exceeded", domain.NewQuotaExceededError(10000, 10000), http.StatusTooManyRequests},
		{"wrapped domain error", fmt.Errorf("handler: %w", domain.NewInvalidInputError("q", "required")), http.StatusBadRequest},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorResponse
	}{
		{
			name: "authentication carries details",
			err:  domain.NewAuthenticationError("Token is invalid or expired", "no session"),
			want: ErrorResponse{Error: "authentication_error", Message: "Token is invalid or expired", Details: "no session"},
		},
		{
			name: "invalid input names the field",
			err:  domain.NewInvalidInputError("videoIds", "At least one video ID is required"),
			want: ErrorResponse{Error: "invalid_input", Message: "At least one video ID is required", Details: "videoIds"},
		},
		{
			name: "external service hides the cause",
			err:  domain.NewExternalServiceError("YouTube", "request failed", errors.New("secret upstream body")),
			want: ErrorResponse{Error: "external_service_error", Message: "YouTube: request failed"},
		},
		{
			name: "token exchange hides the cause",
			err:  domain.NewTokenExchangeError("failed to exchange code for token", errors.New("invalid_grant")),
			want: ErrorResponse{Error: "token_exchange_error", Message: "failed to exchange code for token"},
		},
		{
			name: "quota uses the full message",
			err:  domain.NewQuotaExceededError(9950, 10000),
			want: ErrorResponse{Error: "quota_exceeded", Message: "daily quota exceeded: 9950/10000 units used"},
		},
		{
			name: "non-domain errors are masked",
			err:  errors.New("database password is hunter2"),
			want: ErrorResponse{Error: ErrorCodeInternal, Message: "Internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewErrorResponse(tt.err); got != tt.want {
				t.Errorf("NewErrorResponse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
