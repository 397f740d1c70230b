package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/instrumentation"
	"github.com/giantswarm/youtube-oauth/security"
	"github.com/giantswarm/youtube-oauth/storage"
)

const (
	// DefaultTimezone is the location whose midnight resets the budget
	DefaultTimezone = "America/Los_Angeles"

	// expiryGrace keeps a counter alive a little past its day
	expiryGrace = 5 * time.Minute

	dateLayout = "2006-01-02"
)

// Config configures a Limiter.
type Config struct {
	// DailyLimit is the number of units per day (default: DailyLimit)
	DailyLimit int64

	// Timezone is the IANA location of the reset boundary (default: America/Los_Angeles)
	Timezone string

	// Now returns the current time (default: time.Now)
	Now func() time.Time

	Logger          *slog.Logger
	Auditor         *security.Auditor
	Instrumentation *instrumentation.Instrumentation
}

// Limiter admits or rejects quota charges against the daily budget.
type Limiter struct {
	store    storage.QuotaStore
	limit    int64
	location *time.Location
	now      func() time.Time

	logger          *slog.Logger
	auditor         *security.Auditor
	instrumentation *instrumentation.Instrumentation
}

// New creates a limiter over store.
func New(store storage.QuotaStore, cfg Config) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("quota store is required")
	}
	if cfg.DailyLimit < 0 {
		return nil, fmt.Errorf("daily limit must not be negative, got %d", cfg.DailyLimit)
	}
	if cfg.DailyLimit == 0 {
		cfg.DailyLimit = DailyLimit
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid quota timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Limiter{
		store:           store,
		limit:           cfg.DailyLimit,
		location:        location,
		now:             cfg.Now,
		logger:          cfg.Logger,
		auditor:         cfg.Auditor,
		instrumentation: cfg.Instrumentation,
	}, nil
}

// Limit returns the daily budget.
func (l *Limiter) Limit() int64 {
	return l.limit
}

// Consume charges units against today's budget. When the charge would
// exceed the limit nothing is charged and a QuotaExceededError carrying the
// usage before the attempt is returned.
func (l *Limiter) Consume(ctx context.Context, units int64) (err error) {
	if units <= 0 {
		return domain.NewInvalidInputError("units", "quota units must be positive")
	}

	now := l.now()
	day := l.day(now)

	ctx, span := l.instrumentation.Tracer("quota").Start(ctx, "quota.consume")
	defer func() { instrumentation.EndSpan(span, err) }()

	usage, allowed, err := l.store.IncrementWithinLimit(ctx, l.key(day), units, l.limit, l.ttl(now))
	if err != nil {
		l.logger.Error("Failed to charge quota", "units", units, "day", day, "error", err)
		return err
	}
	instrumentation.AddQuotaAttributes(span, units, usage, l.limit, day)

	if !allowed {
		l.instrumentation.Metrics().RecordQuotaRejected(ctx, units)
		l.auditor.LogQuotaExceeded(usage, l.limit, units)
		l.logger.Warn("Daily quota exceeded",
			"units", units,
			"usage", usage,
			"limit", l.limit,
			"day", day)
		return domain.NewQuotaExceededError(usage, l.limit)
	}

	l.instrumentation.Metrics().RecordQuotaConsumed(ctx, units)
	l.logger.Debug("Charged quota", "units", units, "usage", usage, "limit", l.limit)
	return nil
}

// GetCurrentUsage returns the units charged today.
func (l *Limiter) GetCurrentUsage(ctx context.Context) (int64, error) {
	return l.store.GetUsage(ctx, l.key(l.day(l.now())))
}

// GetRemainingQuota returns the units left today, never negative.
func (l *Limiter) GetRemainingQuota(ctx context.Context) (int64, error) {
	usage, err := l.GetCurrentUsage(ctx)
	if err != nil {
		return 0, err
	}
	return max(0, l.limit-usage), nil
}

// HasAvailableQuota reports whether units could be charged right now.
// It is advisory; only Consume reserves units.
func (l *Limiter) HasAvailableQuota(ctx context.Context, units int64) (bool, error) {
	usage, err := l.GetCurrentUsage(ctx)
	if err != nil {
		return false, err
	}
	return units <= l.limit-usage, nil
}

// RegisterUsageGauge exposes today's usage as an observable gauge.
func (l *Limiter) RegisterUsageGauge() error {
	return l.instrumentation.RegisterQuotaUsageCallback(l.GetCurrentUsage)
}

// day returns the quota day containing t.
func (l *Limiter) day(t time.Time) string {
	return t.In(l.location).Format(dateLayout)
}

func (l *Limiter) key(day string) string {
	return storage.QuotaKeyPrefix + day
}

// ttl returns the time until the next local midnight plus a grace period.
func (l *Limiter) ttl(now time.Time) time.Duration {
	return nextMidnight(now, l.location).Sub(now) + expiryGrace
}

// nextMidnight returns the first midnight in loc strictly after t.
// time.Date normalises the day overflow and resolves DST transitions.
func nextMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}
