package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/internal/util"
	"github.com/giantswarm/youtube-oauth/storage"
)

// ============================================================
// AuthStateStore Implementation
// ============================================================

// SaveState stores an authorization state with SET EX
func (s *Store) SaveState(ctx context.Context, state *domain.AuthorizationState, ttl time.Duration) (err error) {
	ctx, span := s.startStorageSpan(ctx, "save_state")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "save_state", err, startTime) }()

	if err = storage.ValidateState(state); err != nil {
		return err
	}
	if err = validateTTL(ttl); err != nil {
		return err
	}

	rec, err := storage.NewStateRecord(state, s.getEncryptor())
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization state: %w", err)
	}

	key := s.stateKey(state.StateValue)
	if execErr := s.client.Do(ctx, s.client.B().Set().Key(key).Value(string(data)).Ex(ttl).Build()).Error(); execErr != nil {
		err = storage.Unavailable(serviceName, "save authorization state", execErr)
		return err
	}

	s.logger.Debug("Saved authorization state",
		"state", util.SafeTruncate(state.StateValue, stateLogLength),
		"ttl", ttl)
	return nil
}

// FindByState retrieves an authorization state by its state value.
// Valkey expires the key, so an expired state reads as not found.
func (s *Store) FindByState(ctx context.Context, stateValue string) (_ *domain.AuthorizationState, err error) {
	ctx, span := s.startStorageSpan(ctx, "find_state")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "find_state", err, startTime) }()

	data, execErr := s.client.Do(ctx, s.client.B().Get().Key(s.stateKey(stateValue)).Build()).ToString()
	if execErr != nil {
		if isNilError(execErr) {
			return nil, storage.StateNotFound(stateValue)
		}
		return nil, storage.Unavailable(serviceName, "get authorization state", execErr)
	}
	if len(data) > MaxRecordSize {
		return nil, fmt.Errorf("authorization state record exceeds %d bytes", MaxRecordSize)
	}

	var rec storage.StateRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authorization state: %w", err)
	}
	return rec.AuthorizationState(s.getEncryptor())
}

// MarkProcessed atomically marks a state as processed, keeping its TTL
func (s *Store) MarkProcessed(ctx context.Context, stateValue string, token *domain.Token) (err error) {
	ctx, span := s.startStorageSpan(ctx, "mark_processed")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "mark_processed", err, startTime) }()

	var access, refresh, expiresAt, tokenType string
	if token != nil {
		rec, encErr := storage.NewTokenRecord(token, s.getEncryptor())
		if encErr != nil {
			return encErr
		}
		access = rec.AccessToken
		refresh = rec.RefreshToken
		expiresAt = rec.ExpiresAt.Format(time.RFC3339Nano)
		tokenType = rec.TokenType
	}

	result, execErr := s.client.Do(ctx,
		s.client.B().Eval().Script(luaMarkStateProcessed).
			Numkeys(1).
			Key(s.stateKey(stateValue)).
			Arg(access, refresh, expiresAt, tokenType).
			Build(),
	).ToString()
	if execErr != nil {
		return storage.Unavailable(serviceName, "mark authorization state processed", execErr)
	}
	if result == "NOT_FOUND" {
		return storage.StateNotFound(stateValue)
	}

	s.logger.Debug("Marked authorization state processed",
		"state", util.SafeTruncate(stateValue, stateLogLength))
	return nil
}
