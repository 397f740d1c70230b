package valkey

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/giantswarm/youtube-oauth/storage"
)

// ============================================================
// QuotaStore Implementation
// ============================================================

// IncrementWithinLimit runs the increment-or-rollback script against the counter
func (s *Store) IncrementWithinLimit(ctx context.Context, key string, units, limit int64, ttl time.Duration) (usage int64, allowed bool, err error) {
	ctx, span := s.startStorageSpan(ctx, "increment_quota")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "increment_quota", err, startTime) }()

	result, execErr := s.client.Do(ctx,
		s.client.B().Eval().Script(luaIncrementWithinLimit).
			Numkeys(1).
			Key(s.quotaKey(key)).
			Arg(
				strconv.FormatInt(units, 10),
				strconv.FormatInt(limit, 10),
				strconv.FormatInt(ttl.Milliseconds(), 10),
			).
			Build(),
	).AsIntSlice()
	if execErr != nil {
		return 0, false, storage.Unavailable(serviceName, "increment quota", execErr)
	}
	if len(result) != 2 {
		return 0, false, fmt.Errorf("unexpected quota script result: %v", result)
	}
	return result[1], result[0] == 1, nil
}

// GetUsage returns the counter value, or 0 when it does not exist
func (s *Store) GetUsage(ctx context.Context, key string) (_ int64, err error) {
	ctx, span := s.startStorageSpan(ctx, "get_quota")
	startTime := time.Now()
	defer func() { s.recordStorageOperation(ctx, span, "get_quota", err, startTime) }()

	v, execErr := s.client.Do(ctx, s.client.B().Get().Key(s.quotaKey(key)).Build()).AsInt64()
	if execErr != nil {
		if isNilError(execErr) {
			return 0, nil
		}
		return 0, storage.Unavailable(serviceName, "get quota usage", execErr)
	}
	return v, nil
}
