// Package mock provides mock implementations of storage interfaces for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/storage"
)

// Compile-time interface checks
var (
	_ storage.AuthStateStore = (*MockAuthStateStore)(nil)
	_ storage.TokenStore     = (*MockTokenStore)(nil)
	_ storage.QuotaStore     = (*MockQuotaStore)(nil)
)

// callCounter tracks how often each method was invoked.
type callCounter struct {
	countMu    sync.Mutex
	CallCounts map[string]int
}

func (c *callCounter) trackCall(method string) {
	c.countMu.Lock()
	defer c.countMu.Unlock()
	if c.CallCounts == nil {
		c.CallCounts = make(map[string]int)
	}
	c.CallCounts[method]++
}

// Calls returns the number of calls made to method
func (c *callCounter) Calls(method string) int {
	c.countMu.Lock()
	defer c.countMu.Unlock()
	return c.CallCounts[method]
}

// ResetCallCounts resets all call counters
func (c *callCounter) ResetCallCounts() {
	c.countMu.Lock()
	defer c.countMu.Unlock()
	c.CallCounts = make(map[string]int)
}

// MockAuthStateStore is a mock implementation of AuthStateStore for testing.
// The default functions keep states in a map and ignore TTLs.
type MockAuthStateStore struct {
	callCounter

	mu     sync.RWMutex
	states map[string]*domain.AuthorizationState

	SaveStateFunc     func(ctx context.Context, state *domain.AuthorizationState, ttl time.Duration) error
	FindByStateFunc   func(ctx context.Context, stateValue string) (*domain.AuthorizationState, error)
	MarkProcessedFunc func(ctx context.Context, stateValue string, token *domain.Token) error
}

// NewMockAuthStateStore creates a new mock state store
func NewMockAuthStateStore() *MockAuthStateStore {
	m := &MockAuthStateStore{states: make(map[string]*domain.AuthorizationState)}

	m.SaveStateFunc = func(_ context.Context, state *domain.AuthorizationState, _ time.Duration) error {
		if err := storage.ValidateState(state); err != nil {
			return err
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		cp := *state
		m.states[state.StateValue] = &cp
		return nil
	}

	m.FindByStateFunc = func(_ context.Context, stateValue string) (*domain.AuthorizationState, error) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		state, ok := m.states[stateValue]
		if !ok {
			return nil, storage.StateNotFound(stateValue)
		}
		cp := *state
		return &cp, nil
	}

	m.MarkProcessedFunc = func(_ context.Context, stateValue string, token *domain.Token) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		state, ok := m.states[stateValue]
		if !ok {
			return storage.StateNotFound(stateValue)
		}
		m.states[stateValue] = state.MarkProcessed(token)
		return nil
	}

	return m
}

// SaveState implements AuthStateStore
func (m *MockAuthStateStore) SaveState(ctx context.Context, state *domain.AuthorizationState, ttl time.Duration) error {
	m.trackCall("SaveState")
	return m.SaveStateFunc(ctx, state, ttl)
}

// FindByState implements AuthStateStore
func (m *MockAuthStateStore) FindByState(ctx context.Context, stateValue string) (*domain.AuthorizationState, error) {
	m.trackCall("FindByState")
	return m.FindByStateFunc(ctx, stateValue)
}

// MarkProcessed implements AuthStateStore
func (m *MockAuthStateStore) MarkProcessed(ctx context.Context, stateValue string, token *domain.Token) error {
	m.trackCall("MarkProcessed")
	return m.MarkProcessedFunc(ctx, stateValue, token)
}

// MockTokenStore is a mock implementation of TokenStore for testing
type MockTokenStore struct {
	callCounter

	mu     sync.RWMutex
	tokens map[string]*domain.Token
	ttls   map[string]time.Duration

	SaveTokenFunc   func(ctx context.Context, sessionID string, token *domain.Token, ttl time.Duration) error
	FindTokenFunc   func(ctx context.Context, sessionID string) (*domain.Token, error)
	DeleteTokenFunc func(ctx context.Context, sessionID string) error
}

// NewMockTokenStore creates a new mock token store
func NewMockTokenStore() *MockTokenStore {
	m := &MockTokenStore{
		tokens: make(map[string]*domain.Token),
		ttls:   make(map[string]time.Duration),
	}

	m.SaveTokenFunc = func(_ context.Context, sessionID string, token *domain.Token, ttl time.Duration) error {
		if err := storage.ValidateSessionToken(sessionID, token); err != nil {
			return err
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		cp := *token
		m.tokens[sessionID] = &cp
		m.ttls[sessionID] = ttl
		return nil
	}

	m.FindTokenFunc = func(_ context.Context, sessionID string) (*domain.Token, error) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		token, ok := m.tokens[sessionID]
		if !ok {
			return nil, storage.TokenNotFound(sessionID)
		}
		cp := *token
		return &cp, nil
	}

	m.DeleteTokenFunc = func(_ context.Context, sessionID string) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.tokens, sessionID)
		delete(m.ttls, sessionID)
		return nil
	}

	return m
}

// SaveToken implements TokenStore
func (m *MockTokenStore) SaveToken(ctx context.Context, sessionID string, token *domain.Token, ttl time.Duration) error {
	m.trackCall("SaveToken")
	return m.SaveTokenFunc(ctx, sessionID, token, ttl)
}

// FindToken implements TokenStore
func (m *MockTokenStore) FindToken(ctx context.Context, sessionID string) (*domain.Token, error) {
	m.trackCall("FindToken")
	return m.FindTokenFunc(ctx, sessionID)
}

// DeleteToken implements TokenStore
func (m *MockTokenStore) DeleteToken(ctx context.Context, sessionID string) error {
	m.trackCall("DeleteToken")
	return m.DeleteTokenFunc(ctx, sessionID)
}

// TTL returns the TTL the default SaveTokenFunc recorded for a session
func (m *MockTokenStore) TTL(sessionID string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ttls[sessionID]
}

// MockQuotaStore is a mock implementation of QuotaStore for testing
type MockQuotaStore struct {
	callCounter

	mu       sync.Mutex
	counters map[string]int64
	ttls     map[string]time.Duration

	IncrementWithinLimitFunc func(ctx context.Context, key string, units, limit int64, ttl time.Duration) (int64, bool, error)
	GetUsageFunc             func(ctx context.Context, key string) (int64, error)
}

// NewMockQuotaStore creates a new mock quota store
func NewMockQuotaStore() *MockQuotaStore {
	m := &MockQuotaStore{
		counters: make(map[string]int64),
		ttls:     make(map[string]time.Duration),
	}

	m.IncrementWithinLimitFunc = func(_ context.Context, key string, units, limit int64, ttl time.Duration) (int64, bool, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		current := m.counters[key]
		if units > limit-current {
			return current, false, nil
		}
		m.counters[key] = current + units
		if current == 0 {
			m.ttls[key] = ttl
		}
		return current + units, true, nil
	}

	m.GetUsageFunc = func(_ context.Context, key string) (int64, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.counters[key], nil
	}

	return m
}

// IncrementWithinLimit implements QuotaStore
func (m *MockQuotaStore) IncrementWithinLimit(ctx context.Context, key string, units, limit int64, ttl time.Duration) (int64, bool, error) {
	m.trackCall("IncrementWithinLimit")
	return m.IncrementWithinLimitFunc(ctx, key, units, limit, ttl)
}

// GetUsage implements QuotaStore
func (m *MockQuotaStore) GetUsage(ctx context.Context, key string) (int64, error) {
	m.trackCall("GetUsage")
	return m.GetUsageFunc(ctx, key)
}

// Set seeds a counter value
func (m *MockQuotaStore) Set(key string, usage int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key] = usage
}

// TTL returns the TTL recorded on the first increment of key
func (m *MockQuotaStore) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

// Keys returns the counter keys that have been written
func (m *MockQuotaStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.counters))
	for k := range m.counters {
		keys = append(keys, k)
	}
	return keys
}
