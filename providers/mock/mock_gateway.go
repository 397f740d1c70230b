// Package mock provides a mock implementation of the providers.Gateway
// interface for testing.
package mock

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/providers"
)

var _ providers.Gateway = (*MockGateway)(nil)

// MockGateway is a mock implementation of the Gateway interface for testing
type MockGateway struct {
	// NameFunc is called when Name() is invoked
	NameFunc func() string

	// AuthorizationURLFunc is called when AuthorizationURL() is invoked
	AuthorizationURLFunc func(state, codeChallenge string) string

	// ExchangeCodeFunc is called when ExchangeCode() is invoked
	ExchangeCodeFunc func(ctx context.Context, code, codeVerifier string) (*domain.Token, error)

	// RefreshTokenFunc is called when RefreshToken() is invoked
	RefreshTokenFunc func(ctx context.Context, refreshToken string) (*domain.Token, error)

	// CallCounts tracks how many times each method was called
	CallCounts map[string]int

	// mu protects CallCounts from concurrent access
	mu sync.RWMutex
}

// NewMockGateway creates a new mock gateway with default implementations.
// Exchanged tokens live for an hour and carry a refresh token; refreshed
// tokens carry none, as Google does when it does not rotate.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		CallCounts: make(map[string]int),
		NameFunc: func() string {
			return "mock"
		},
		AuthorizationURLFunc: func(state, codeChallenge string) string {
			q := url.Values{}
			q.Set("state", state)
			q.Set("code_challenge", codeChallenge)
			q.Set("code_challenge_method", domain.PKCEMethodS256)
			q.Set("access_type", "offline")
			return "https://mock.example.com/authorize?" + q.Encode()
		},
		ExchangeCodeFunc: func(_ context.Context, _, _ string) (*domain.Token, error) {
			return domain.NewToken("mock-access-token", "mock-refresh-token", time.Hour, domain.TokenTypeBearer)
		},
		RefreshTokenFunc: func(_ context.Context, _ string) (*domain.Token, error) {
			return domain.NewToken("new-mock-access-token", "", time.Hour, domain.TokenTypeBearer)
		},
	}
}

// Name returns the provider name
func (m *MockGateway) Name() string {
	// Lock only to update the counter and read the function; the function
	// itself may call back into the mock.
	m.mu.Lock()
	m.CallCounts["Name"]++
	fn := m.NameFunc
	m.mu.Unlock()

	if fn == nil {
		return "mock"
	}
	return fn()
}

// AuthorizationURL generates the URL to redirect users for authentication
func (m *MockGateway) AuthorizationURL(state, codeChallenge string) string {
	m.mu.Lock()
	m.CallCounts["AuthorizationURL"]++
	fn := m.AuthorizationURLFunc
	m.mu.Unlock()
	if fn == nil {
		return "https://mock.example.com/authorize?state=" + url.QueryEscape(state)
	}
	return fn(state, codeChallenge)
}

// ExchangeCode exchanges an authorization code for tokens
func (m *MockGateway) ExchangeCode(ctx context.Context, code, codeVerifier string) (*domain.Token, error) {
	m.mu.Lock()
	m.CallCounts["ExchangeCode"]++
	fn := m.ExchangeCodeFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("ExchangeCodeFunc not configured")
	}
	return fn(ctx, code, codeVerifier)
}

// RefreshToken refreshes an expired token using a refresh token
func (m *MockGateway) RefreshToken(ctx context.Context, refreshToken string) (*domain.Token, error) {
	m.mu.Lock()
	m.CallCounts["RefreshToken"]++
	fn := m.RefreshTokenFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("RefreshTokenFunc not configured")
	}
	return fn(ctx, refreshToken)
}

// ResetCallCounts resets all call counters
func (m *MockGateway) ResetCallCounts() {
	m.mu.Lock()
	m.CallCounts = make(map[string]int)
	m.mu.Unlock()
}

// GetCallCount returns the number of times a method was called
func (m *MockGateway) GetCallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.CallCounts[method]
}
