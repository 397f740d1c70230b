package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/instrumentation"
	"github.com/giantswarm/youtube-oauth/internal/util"
	"github.com/giantswarm/youtube-oauth/security"
	"github.com/giantswarm/youtube-oauth/storage"
)

const (
	backendName = "memory"

	// stateLogLength is the number of characters of a state value included in logs.
	stateLogLength = 8
)

type stateEntry struct {
	record    storage.StateRecord
	expiresAt time.Time
}

type tokenEntry struct {
	record    storage.TokenRecord
	expiresAt time.Time
}

type counterEntry struct {
	value     int64
	expiresAt time.Time
}

// Store is an in-memory implementation of AuthStateStore, TokenStore and QuotaStore.
// Expired entries are invisible to reads and removed by a background loop.
type Store struct {
	mu sync.RWMutex

	states   map[string]*stateEntry
	tokens   map[string]*tokenEntry
	counters map[string]*counterEntry

	now func() time.Time

	// Security
	encryptor *security.Encryptor

	// Instrumentation
	instrumentation *instrumentation.Instrumentation
	tracer          trace.Tracer

	// lock-free counts for the size gauges
	statesCount atomic.Int64
	tokensCount atomic.Int64

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	logger          *slog.Logger
}

// Compile-time interface checks
var (
	_ storage.AuthStateStore = (*Store)(nil)
	_ storage.TokenStore     = (*Store)(nil)
	_ storage.QuotaStore     = (*Store)(nil)
)

// New creates a new in-memory store with the default cleanup interval (1 minute).
func New() *Store {
	return NewWithInterval(time.Minute)
}

// NewWithInterval creates a new in-memory store with a custom cleanup interval.
// If cleanupInterval is 0 or negative, uses default of 1 minute.
func NewWithInterval(cleanupInterval time.Duration) *Store {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	s := &Store{
		states:          make(map[string]*stateEntry),
		tokens:          make(map[string]*tokenEntry),
		counters:        make(map[string]*counterEntry),
		now:             time.Now,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
		logger:          slog.Default(),
	}

	go s.cleanupLoop()

	return s
}

// SetLogger sets a custom logger
func (s *Store) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetEncryptor sets the encryptor for tokens and code verifiers at rest
func (s *Store) SetEncryptor(enc *security.Encryptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encryptor = enc
	if enc.IsEnabled() {
		s.logger.Info("Token encryption at rest enabled for storage")
	}
}

// SetClock replaces the time source used for TTLs.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetInstrumentation sets OpenTelemetry instrumentation for the store
func (s *Store) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.mu.Lock()
	s.instrumentation = inst
	if inst != nil {
		s.tracer = inst.Tracer("storage")
	}
	s.statesCount.Store(int64(len(s.states)))
	s.tokensCount.Store(int64(len(s.tokens)))
	s.mu.Unlock()

	if inst != nil {
		err := inst.RegisterStorageSizeCallbacks(
			func() int64 { return s.statesCount.Load() },
			func() int64 { return s.tokensCount.Load() },
		)
		if err != nil {
			s.logger.Warn("Failed to register storage size callbacks", "error", err)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}

// ============================================================
// AuthStateStore Implementation
// ============================================================

// SaveState saves an authorization state for ttl
func (s *Store) SaveState(ctx context.Context, state *domain.AuthorizationState, ttl time.Duration) (err error) {
	ctx, span := s.startStorageSpan(ctx, "save_state")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "save_state", err, startTime) }()

	if err = storage.ValidateState(state); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := storage.NewStateRecord(state, s.encryptor)
	if err != nil {
		return err
	}

	if _, existed := s.states[state.StateValue]; !existed {
		s.statesCount.Add(1)
	}
	s.states[state.StateValue] = &stateEntry{record: *rec, expiresAt: s.now().Add(ttl)}

	s.logger.Debug("Saved authorization state",
		"state", util.SafeTruncate(state.StateValue, stateLogLength),
		"ttl", ttl)
	return nil
}

// FindByState retrieves an authorization state by its state value
func (s *Store) FindByState(ctx context.Context, stateValue string) (_ *domain.AuthorizationState, err error) {
	ctx, span := s.startStorageSpan(ctx, "find_state")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "find_state", err, startTime) }()

	s.mu.RLock()
	entry, ok := s.states[stateValue]
	var rec storage.StateRecord
	if ok {
		rec = entry.record
		ok = s.now().Before(entry.expiresAt)
	}
	enc := s.encryptor
	s.mu.RUnlock()

	if !ok {
		return nil, storage.StateNotFound(stateValue)
	}
	return rec.AuthorizationState(enc)
}

// MarkProcessed marks a state as processed, keeping its original expiry
func (s *Store) MarkProcessed(ctx context.Context, stateValue string, token *domain.Token) (err error) {
	ctx, span := s.startStorageSpan(ctx, "mark_processed")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "mark_processed", err, startTime) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.states[stateValue]
	if !ok || !s.now().Before(entry.expiresAt) {
		return storage.StateNotFound(stateValue)
	}

	rec := entry.record
	if err = rec.MarkProcessed(token, s.encryptor); err != nil {
		return err
	}
	entry.record = rec
	return nil
}

// ============================================================
// TokenStore Implementation
// ============================================================

// SaveToken saves the token bound to a session
func (s *Store) SaveToken(ctx context.Context, sessionID string, token *domain.Token, ttl time.Duration) (err error) {
	ctx, span := s.startStorageSpan(ctx, "save_token")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "save_token", err, startTime) }()

	if err = storage.ValidateSessionToken(sessionID, token); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := storage.NewTokenRecord(token, s.encryptor)
	if err != nil {
		return err
	}

	if _, existed := s.tokens[sessionID]; !existed {
		s.tokensCount.Add(1)
	}
	s.tokens[sessionID] = &tokenEntry{record: *rec, expiresAt: s.now().Add(ttl)}
	return nil
}

// FindToken retrieves the token bound to a session
func (s *Store) FindToken(ctx context.Context, sessionID string) (_ *domain.Token, err error) {
	ctx, span := s.startStorageSpan(ctx, "find_token")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "find_token", err, startTime) }()

	s.mu.RLock()
	entry, ok := s.tokens[sessionID]
	var rec storage.TokenRecord
	if ok {
		rec = entry.record
		ok = s.now().Before(entry.expiresAt)
	}
	enc := s.encryptor
	s.mu.RUnlock()

	if !ok {
		return nil, storage.TokenNotFound(sessionID)
	}
	return rec.Token(enc)
}

// DeleteToken removes the token bound to a session
func (s *Store) DeleteToken(ctx context.Context, sessionID string) (err error) {
	ctx, span := s.startStorageSpan(ctx, "delete_token")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "delete_token", err, startTime) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[sessionID]; ok {
		delete(s.tokens, sessionID)
		s.tokensCount.Add(-1)
	}
	return nil
}

// ============================================================
// QuotaStore Implementation
// ============================================================

// IncrementWithinLimit adds units to the counter unless the limit would be exceeded.
// The whole check-and-increment runs under the store lock.
func (s *Store) IncrementWithinLimit(ctx context.Context, key string, units, limit int64, ttl time.Duration) (usage int64, allowed bool, err error) {
	ctx, span := s.startStorageSpan(ctx, "increment_quota")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "increment_quota", err, startTime) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.counters[key]
	if ok && !now.Before(entry.expiresAt) {
		delete(s.counters, key)
		ok = false
	}
	if !ok {
		entry = &counterEntry{}
	}

	if units > limit-entry.value {
		return entry.value, false, nil
	}

	next := entry.value + units
	entry.value = next
	if next == units {
		entry.expiresAt = now.Add(ttl)
	}
	s.counters[key] = entry
	return next, true, nil
}

// GetUsage returns the counter value, or 0 when absent or expired
func (s *Store) GetUsage(ctx context.Context, key string) (_ int64, err error) {
	ctx, span := s.startStorageSpan(ctx, "get_quota")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "get_quota", err, startTime) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.counters[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		return 0, nil
	}
	return entry.value, nil
}

// ============================================================
// Cleanup
// ============================================================

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cleaned := 0

	for k, e := range s.states {
		if !now.Before(e.expiresAt) {
			delete(s.states, k)
			s.statesCount.Add(-1)
			cleaned++
		}
	}
	for k, e := range s.tokens {
		if !now.Before(e.expiresAt) {
			delete(s.tokens, k)
			s.tokensCount.Add(-1)
			cleaned++
		}
	}
	for k, e := range s.counters {
		if !now.Before(e.expiresAt) {
			delete(s.counters, k)
			cleaned++
		}
	}

	if cleaned > 0 {
		s.logger.Debug("Cleaned up expired entries", "count", cleaned)
	}
}

// ============================================================
// Instrumentation Helpers
// ============================================================

// startStorageSpan starts a new span for a storage operation
func (s *Store) startStorageSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return s.tracer.Start(ctx, fmt.Sprintf("storage.%s", operation),
		trace.WithAttributes(
			attribute.String(instrumentation.AttrStorageOperation, operation),
			attribute.String(instrumentation.AttrStorageType, backendName),
		))
}

// recordStorageOperation records metrics for a storage operation and ends the span
func (s *Store) recordStorageOperation(ctx context.Context, span trace.Span, operation string, err error, startTime time.Time) {
	if s.instrumentation == nil {
		return
	}

	result := "success"
	if err != nil {
		result = "error"
		if domain.IsKind(err, domain.KindResourceNotFound) {
			result = "not_found"
		}
	}
	s.instrumentation.Metrics().RecordStorageOperation(ctx, operation, result, float64(time.Since(startTime).Milliseconds()))
	instrumentation.EndSpan(span, err)
}
