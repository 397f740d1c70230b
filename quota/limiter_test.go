package quota

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/internal/testutil"
	"github.com/giantswarm/youtube-oauth/security"
	"github.com/giantswarm/youtube-oauth/storage"
	"github.com/giantswarm/youtube-oauth/storage/memory"
	"github.com/giantswarm/youtube-oauth/storage/mock"
)

// 2026-10-19 12:00 in Los Angeles (PDT, UTC-7)
var testNow = time.Date(2026, 10, 19, 19, 0, 0, 0, time.UTC)

const testKey = storage.QuotaKeyPrefix + "2026-10-19"

func newMockLimiter(t *testing.T) (*Limiter, *mock.MockQuotaStore) {
	t.Helper()
	store := mock.NewMockQuotaStore()
	limiter, err := New(store, Config{Now: func() time.Time { return testNow }})
	require.NoError(t, err)
	return limiter, store
}

func TestNew(t *testing.T) {
	store := mock.NewMockQuotaStore()

	tests := []struct {
		name    string
		store   storage.QuotaStore
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", store: store},
		{name: "custom limit and zone", store: store, cfg: Config{DailyLimit: 500, Timezone: "Europe/Berlin"}},
		{name: "nil store", store: nil, wantErr: true},
		{name: "negative limit", store: store, cfg: Config{DailyLimit: -1}, wantErr: true},
		{name: "unknown timezone", store: store, cfg: Config{Timezone: "Mars/Olympus_Mons"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := New(tt.store, tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, limiter)
		})
	}

	limiter, err := New(store, Config{})
	require.NoError(t, err)
	assert.Equal(t, DailyLimit, limiter.Limit())
	assert.Equal(t, DefaultTimezone, limiter.location.String())
}

func TestConsume_InvalidUnits(t *testing.T) {
	limiter, store := newMockLimiter(t)

	for _, units := range []int64{0, -1, -100} {
		err := limiter.Consume(context.Background(), units)

		var invalid *domain.InvalidInputError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "units", invalid.Field)
	}
	assert.Equal(t, 0, store.Calls("IncrementWithinLimit"))
}

func TestConsume_FirstChargeSetsTTL(t *testing.T) {
	limiter, store := newMockLimiter(t)
	ctx := context.Background()

	require.NoError(t, limiter.Consume(ctx, CostPlaylistsInsert))

	usage, err := limiter.GetCurrentUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), usage)

	// noon PDT to midnight PDT plus the grace period
	assert.Equal(t, 12*time.Hour+5*time.Minute, store.TTL(testKey))
	assert.Equal(t, []string{testKey}, store.Keys())
}

func TestConsume_ExceedingLimitLeavesUsageUnchanged(t *testing.T) {
	limiter, store := newMockLimiter(t)
	ctx := context.Background()
	store.Set(testKey, 9950)

	err := limiter.Consume(ctx, CostSearchList)

	var exceeded *domain.QuotaExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, int64(9950), exceeded.Usage)
	assert.Equal(t, int64(10000), exceeded.Limit)

	usage, err := limiter.GetCurrentUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9950), usage)
}

func TestConsume_HugeUnitsRejected(t *testing.T) {
	store := memory.New()
	t.Cleanup(store.Stop)
	limiter, err := New(store, Config{Now: func() time.Time { return testNow }})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, limiter.Consume(ctx, 1))

	err = limiter.Consume(ctx, math.MaxInt64)
	assert.True(t, domain.IsKind(err, domain.KindQuotaExceeded))

	usage, err := limiter.GetCurrentUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage)

	remaining, err := limiter.GetRemainingQuota(ctx)
	require.NoError(t, err)
	assert.Equal(t, limiter.Limit()-1, remaining)

	ok, err := limiter.HasAvailableQuota(ctx, math.MaxInt64)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsume_ExactlyAtLimit(t *testing.T) {
	limiter, store := newMockLimiter(t)
	ctx := context.Background()
	store.Set(testKey, 9900)

	require.NoError(t, limiter.Consume(ctx, CostSearchList))

	remaining, err := limiter.GetRemainingQuota(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)

	err = limiter.Consume(ctx, CostPlaylistsList)
	assert.True(t, domain.IsKind(err, domain.KindQuotaExceeded))
}

func TestConsume_StoreFailure(t *testing.T) {
	limiter, store := newMockLimiter(t)
	storeErr := storage.Unavailable("Valkey", "increment quota", errors.New("connection refused"))
	store.IncrementWithinLimitFunc = func(context.Context, string, int64, int64, time.Duration) (int64, bool, error) {
		return 0, false, storeErr
	}

	err := limiter.Consume(context.Background(), 1)
	assert.ErrorIs(t, err, storeErr)
	assert.True(t, domain.IsKind(err, domain.KindExternalService))
}

func TestConsume_AuditsRejection(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	store := mock.NewMockQuotaStore()
	store.Set(testKey, 10000)
	limiter, err := New(store, Config{
		Now:     func() time.Time { return testNow },
		Auditor: security.NewAuditor(logger, true),
		Logger:  logger,
	})
	require.NoError(t, err)

	err = limiter.Consume(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, buf.String(), security.EventQuotaExceeded)
}

func TestGetRemainingQuota_NeverNegative(t *testing.T) {
	limiter, store := newMockLimiter(t)
	store.Set(testKey, 10500)

	remaining, err := limiter.GetRemainingQuota(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)
}

func TestHasAvailableQuota(t *testing.T) {
	limiter, store := newMockLimiter(t)
	ctx := context.Background()
	store.Set(testKey, 9900)

	tests := []struct {
		units int64
		want  bool
	}{
		{units: 1, want: true},
		{units: 100, want: true},
		{units: 101, want: false},
	}
	for _, tt := range tests {
		got, err := limiter.HasAvailableQuota(ctx, tt.units)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "units=%d", tt.units)
	}

	// advisory only
	usage, err := limiter.GetCurrentUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9900), usage)
}

func TestDayBoundary(t *testing.T) {
	la, err := time.LoadLocation(DefaultTimezone)
	require.NoError(t, err)

	tests := []struct {
		name    string
		now     time.Time
		wantDay string
		wantTTL time.Duration
	}{
		{
			name:    "late evening belongs to the local day",
			now:     time.Date(2026, 3, 8, 7, 30, 0, 0, time.UTC), // 23:30 PST on Mar 7
			wantDay: "2026-03-07",
			wantTTL: 30*time.Minute + expiryGrace,
		},
		{
			name:    "DST start shortens the day",
			now:     time.Date(2026, 3, 8, 8, 0, 0, 0, time.UTC), // 00:00 PST on Mar 8
			wantDay: "2026-03-08",
			wantTTL: 23*time.Hour + expiryGrace,
		},
		{
			name:    "DST end lengthens the day",
			now:     time.Date(2026, 11, 1, 7, 0, 0, 0, time.UTC), // 00:00 PDT on Nov 1
			wantDay: "2026-11-01",
			wantTTL: 25*time.Hour + expiryGrace,
		},
		{
			name:    "UTC date ahead of local date",
			now:     time.Date(2026, 10, 20, 3, 0, 0, 0, time.UTC), // 20:00 PDT on Oct 19
			wantDay: "2026-10-19",
			wantTTL: 4*time.Hour + expiryGrace,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := &Limiter{location: la}
			assert.Equal(t, tt.wantDay, limiter.day(tt.now))
			assert.Equal(t, tt.wantTTL, limiter.ttl(tt.now))
		})
	}
}

func TestUsageResetsAfterMidnight(t *testing.T) {
	clock := testutil.NewMockTime(time.Date(2026, 10, 20, 6, 50, 0, 0, time.UTC)) // 23:50 PDT
	store := memory.New()
	defer store.Stop()
	store.SetClock(clock.Now)

	limiter, err := New(store, Config{DailyLimit: 1000, Now: clock.Now})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, limiter.Consume(ctx, 1000))
	assert.True(t, domain.IsKind(limiter.Consume(ctx, 1), domain.KindQuotaExceeded))

	clock.Advance(15 * time.Minute)

	usage, err := limiter.GetCurrentUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage)
	require.NoError(t, limiter.Consume(ctx, 100))

	// the previous day's counter expires once its grace period is over
	clock.Advance(expiryGrace)
	prev, err := store.GetUsage(ctx, storage.QuotaKeyPrefix+"2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, int64(0), prev)
}

func TestConsume_Concurrent(t *testing.T) {
	store := memory.New()
	defer store.Stop()

	limiter, err := New(store, Config{})
	require.NoError(t, err)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		admitted atomic.Int64
		rejected atomic.Int64
	)
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := limiter.Consume(ctx, CostSearchList)
			switch {
			case err == nil:
				admitted.Add(1)
			case domain.IsKind(err, domain.KindQuotaExceeded):
				rejected.Add(1)
			default:
				t.Errorf("Consume() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), admitted.Load())
	assert.Equal(t, int64(50), rejected.Load())

	usage, err := limiter.GetCurrentUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, DailyLimit, usage)
}

func TestRegisterUsageGauge_WithoutInstrumentation(t *testing.T) {
	limiter, _ := newMockLimiter(t)
	assert.NoError(t, limiter.RegisterUsageGauge())
}
