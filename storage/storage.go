package storage

import (
	"context"
	"time"

	"github.com/giantswarm/youtube-oauth/domain"
)

// Key prefixes. Backends prepend their own namespace prefix (if any).
const (
	StateKeyPrefix = "oauth:state:"
	TokenKeyPrefix = "session:token:"
	QuotaKeyPrefix = "youtube:quota:"
)

// Resource names used in ResourceNotFoundError.
const (
	ResourceAuthState = "AuthState"
	ResourceToken     = "Token"
)

// AuthStateStore persists pending and processed authorization states.
// It is the single source of truth for whether a state value has been consumed.
// All methods accept context.Context for tracing and cancellation.
type AuthStateStore interface {
	// SaveState persists state under its state value for ttl.
	SaveState(ctx context.Context, state *domain.AuthorizationState, ttl time.Duration) error

	// FindByState returns the state or a ResourceNotFoundError if it is
	// absent or its TTL has elapsed.
	FindByState(ctx context.Context, stateValue string) (*domain.AuthorizationState, error)

	// MarkProcessed idempotently marks a stored state as processed and caches
	// token with it. The remaining TTL is preserved so repeated callbacks can
	// still find the cached token until natural expiry.
	MarkProcessed(ctx context.Context, stateValue string, token *domain.Token) error
}

// TokenStore persists the credential bound to a browser session.
// All methods accept context.Context for tracing and cancellation.
type TokenStore interface {
	// SaveToken stores token for sessionID, replacing any previous token.
	SaveToken(ctx context.Context, sessionID string, token *domain.Token, ttl time.Duration) error

	// FindToken returns the session's token or a ResourceNotFoundError.
	FindToken(ctx context.Context, sessionID string) (*domain.Token, error)

	// DeleteToken removes the session's token. Deleting a missing token is not an error.
	DeleteToken(ctx context.Context, sessionID string) error
}

// QuotaStore holds daily usage counters.
// All methods accept context.Context for tracing and cancellation.
type QuotaStore interface {
	// IncrementWithinLimit atomically adds units to the counter at key.
	// If the new total exceeds limit the increment is rolled back and
	// allowed is false; usage is then the pre-increment value. Otherwise
	// usage is the new total. ttl is applied when the counter is created.
	IncrementWithinLimit(ctx context.Context, key string, units, limit int64, ttl time.Duration) (usage int64, allowed bool, err error)

	// GetUsage returns the counter at key, or 0 if it does not exist.
	GetUsage(ctx context.Context, key string) (int64, error)
}

// StateNotFound is the error returned for an unknown or expired state value.
func StateNotFound(stateValue string) error {
	return domain.NewResourceNotFoundError(ResourceAuthState, stateValue)
}

// TokenNotFound is the error returned for a session without a stored token.
func TokenNotFound(sessionID string) error {
	return domain.NewResourceNotFoundError(ResourceToken, sessionID)
}

// Unavailable wraps a backend failure as an ExternalServiceError.
func Unavailable(backend, operation string, err error) error {
	return domain.NewExternalServiceError(backend, "failed to "+operation, err)
}

// ValidateState rejects a nil state or one without a state value.
func ValidateState(state *domain.AuthorizationState) error {
	if state == nil {
		return domain.NewInvalidInputError("state", "state cannot be nil")
	}
	if state.StateValue == "" {
		return domain.NewInvalidInputError("state", "state value cannot be empty")
	}
	return nil
}

// ValidateSessionToken rejects an empty session ID or a nil token.
func ValidateSessionToken(sessionID string, token *domain.Token) error {
	if sessionID == "" {
		return domain.NewInvalidInputError("sessionId", "session ID cannot be empty")
	}
	if token == nil {
		return domain.NewInvalidInputError("token", "token cannot be nil")
	}
	return nil
}
