package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/storage"
)

// invalidTokenMessage is returned for every session that has no usable token
const invalidTokenMessage = "Token is invalid or expired"

// TokenService resolves and manages the credential bound to a session.
type TokenService struct {
	store  storage.TokenStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewTokenService creates a token service storing tokens for ttl
// (default: DefaultSessionTTL).
func NewTokenService(store storage.TokenStore, ttl time.Duration, logger *slog.Logger) (*TokenService, error) {
	if store == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenService{store: store, ttl: ttl, logger: logger}, nil
}

// SessionTTL returns the TTL applied to stored tokens.
func (ts *TokenService) SessionTTL() time.Duration {
	return ts.ttl
}

// CurrentToken returns the credential for session. A bearer override wins
// over the session-bound token and is given a nominal one hour lifetime.
// A missing, expired or blank token is an AuthenticationError; store
// failures are returned unchanged.
func (ts *TokenService) CurrentToken(ctx context.Context, session domain.Session) (*domain.Token, error) {
	if session.HasBearerOverride() {
		ts.logger.Debug("Using bearer token supplied by caller")
		return domain.NewToken(session.BearerOverride, "", BearerOverrideLifetime, domain.TokenTypeBearer)
	}

	if session.ID == "" {
		return nil, domain.NewAuthenticationError(invalidTokenMessage, "no active session")
	}

	token, err := ts.store.FindToken(ctx, session.ID)
	if err != nil {
		if domain.IsKind(err, domain.KindResourceNotFound) {
			return nil, domain.NewAuthenticationError(invalidTokenMessage, "please authenticate first")
		}
		return nil, err
	}

	if !token.IsValid() {
		return nil, domain.NewAuthenticationError(invalidTokenMessage, "please re-authenticate")
	}
	return token, nil
}

// IsAuthenticated reports whether CurrentToken would succeed.
func (ts *TokenService) IsAuthenticated(ctx context.Context, session domain.Session) bool {
	_, err := ts.CurrentToken(ctx, session)
	return err == nil
}

// StoreToken binds token to sessionID for the session TTL.
func (ts *TokenService) StoreToken(ctx context.Context, sessionID string, token *domain.Token) error {
	if err := ts.store.SaveToken(ctx, sessionID, token, ts.ttl); err != nil {
		return err
	}
	ts.logger.Debug("Stored session token", "expires_at", token.ExpiresAt)
	return nil
}

// RemoveToken unbinds the token from sessionID. Removing a missing token
// is not an error.
func (ts *TokenService) RemoveToken(ctx context.Context, sessionID string) error {
	return ts.store.DeleteToken(ctx, sessionID)
}
