package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/storage"
)

// ============================================================
// TokenStore Implementation
// ============================================================

// SaveToken stores the token bound to a session, encrypted when configured
func (s *Store) SaveToken(ctx context.Context, sessionID string, token *domain.Token, ttl time.Duration) (err error) {
	ctx, span := s.startStorageSpan(ctx, "save_token")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "save_token", err, startTime) }()

	if err = storage.ValidateSessionToken(sessionID, token); err != nil {
		return err
	}
	if err = validateTTL(ttl); err != nil {
		return err
	}

	rec, err := storage.NewTokenRecord(token, s.getEncryptor())
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if len(data) > MaxRecordSize {
		return domain.NewInvalidInputError("token", "token exceeds maximum allowed size")
	}

	if execErr := s.client.Do(ctx, s.client.B().Set().Key(s.tokenKey(sessionID)).Value(string(data)).Ex(ttl).Build()).Error(); execErr != nil {
		return storage.Unavailable(serviceName, "save token", execErr)
	}
	return nil
}

// FindToken retrieves and decrypts the token bound to a session
func (s *Store) FindToken(ctx context.Context, sessionID string) (_ *domain.Token, err error) {
	ctx, span := s.startStorageSpan(ctx, "find_token")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "find_token", err, startTime) }()

	data, execErr := s.client.Do(ctx, s.client.B().Get().Key(s.tokenKey(sessionID)).Build()).ToString()
	if execErr != nil {
		if isNilError(execErr) {
			return nil, storage.TokenNotFound(sessionID)
		}
		return nil, storage.Unavailable(serviceName, "get token", execErr)
	}

	var rec storage.TokenRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return rec.Token(s.getEncryptor())
}

// DeleteToken removes the token bound to a session
func (s *Store) DeleteToken(ctx context.Context, sessionID string) (err error) {
	ctx, span := s.startStorageSpan(ctx, "delete_token")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "delete_token", err, startTime) }()

	if execErr := s.client.Do(ctx, s.client.B().Del().Key(s.tokenKey(sessionID)).Build()).Error(); execErr != nil {
		return storage.Unavailable(serviceName, "delete token", execErr)
	}
	return nil
}
