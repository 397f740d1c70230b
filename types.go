package oauth

import (
	"time"

	"github.com/giantswarm/youtube-oauth/domain"
)

// TokenResponse is returned by the refresh endpoint
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
	IsValid     bool      `json:"isValid"`
}

// NewTokenResponse converts a domain token for the wire. The refresh token
// is never exposed.
func NewTokenResponse(token *domain.Token) TokenResponse {
	return TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
		IsValid:     token.IsValid(),
	}
}

// SessionStatusResponse reports whether the caller holds a usable token
type SessionStatusResponse struct {
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// QuotaStatusResponse reports today's quota consumption
type QuotaStatusResponse struct {
	Usage     int64 `json:"usage"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

// CreatePlaylistRequest is the body of POST /api/youtube/v1/playlists
type CreatePlaylistRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AddVideosRequest is the body of POST /api/youtube/v1/playlists/{id}/videos
type AddVideosRequest struct {
	VideoIDs []string `json:"videoIds"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
}
