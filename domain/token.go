package domain

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenTypeBearer is the token type assumed when the provider sends none.
const TokenTypeBearer = "Bearer"

// Token is the credential bound to a user session.
// An empty RefreshToken means the provider issued none.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// NewToken validates its inputs and returns a token expiring expiresIn from now.
func NewToken(accessToken, refreshToken string, expiresIn time.Duration, tokenType string) (*Token, error) {
	return newTokenAt(time.Now(), accessToken, refreshToken, expiresIn, tokenType)
}

func newTokenAt(now time.Time, accessToken, refreshToken string, expiresIn time.Duration, tokenType string) (*Token, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, NewInvalidInputError("accessToken", "access token cannot be blank")
	}
	if expiresIn <= 0 {
		return nil, NewInvalidInputError("expiresIn", "token lifetime must be positive")
	}
	if strings.TrimSpace(tokenType) == "" {
		tokenType = TokenTypeBearer
	}
	return &Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(expiresIn),
		TokenType:    tokenType,
	}, nil
}

// TokenFromOAuth2 converts a provider token response.
// A response without an expiry, or one already in the past, is rejected.
func TokenFromOAuth2(t *oauth2.Token) (*Token, error) {
	if t == nil {
		return nil, NewInvalidInputError("token", "token response is empty")
	}
	now := time.Now()
	var expiresIn time.Duration
	if !t.Expiry.IsZero() {
		expiresIn = t.Expiry.Sub(now)
	} else if t.ExpiresIn > 0 {
		expiresIn = time.Duration(t.ExpiresIn) * time.Second
	}
	return newTokenAt(now, t.AccessToken, t.RefreshToken, expiresIn, t.TokenType)
}

// OAuth2 returns the token in the form expected by golang.org/x/oauth2.
func (t *Token) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.ExpiresAt,
	}
}

// IsExpired reports whether the token is past its expiry.
func (t *Token) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether the token is expired at the given instant.
func (t *Token) IsExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsValid reports whether the token can still be presented upstream.
func (t *Token) IsValid() bool {
	return t != nil && !t.IsExpired() && strings.TrimSpace(t.AccessToken) != ""
}

// HasRefreshToken reports whether a refresh grant is possible.
func (t *Token) HasRefreshToken() bool {
	return t != nil && t.RefreshToken != ""
}

// WithRefreshTokenFallback returns a copy of t that keeps previous as its
// refresh token when t has none.
func (t *Token) WithRefreshTokenFallback(previous string) *Token {
	cp := *t
	if cp.RefreshToken == "" {
		cp.RefreshToken = previous
	}
	return &cp
}

// ExpiresIn returns the remaining lifetime, never negative.
func (t *Token) ExpiresIn() time.Duration {
	d := time.Until(t.ExpiresAt)
	if d < 0 {
		return 0
	}
	return d
}
