package providers

import (
	"context"

	"github.com/giantswarm/youtube-oauth/domain"
)

// Gateway is the identity provider side of the authorization code flow.
// Implementations talk to one provider and translate its token responses
// into domain tokens.
type Gateway interface {
	// Name returns the provider name (e.g., "google")
	Name() string

	// AuthorizationURL builds the URL the user is redirected to. The URL
	// carries the state value, the S256 code challenge and requests offline
	// access so that a refresh token is issued.
	AuthorizationURL(state, codeChallenge string) string

	// ExchangeCode exchanges an authorization code, proving possession of
	// the PKCE verifier.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*domain.Token, error)

	// RefreshToken runs a refresh grant. The returned token may have an
	// empty RefreshToken when the provider did not rotate it.
	RefreshToken(ctx context.Context, refreshToken string) (*domain.Token, error)
}
