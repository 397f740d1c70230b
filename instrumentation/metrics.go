package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments for the service.
type Metrics struct {
	// HTTP Layer Metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// OAuth Flow Metrics
	AuthorizationStarted metric.Int64Counter
	CallbackProcessed    metric.Int64Counter
	TokenRefreshed       metric.Int64Counter
	SessionsCreated      metric.Int64Counter

	// Quota Metrics
	QuotaUnitsConsumed metric.Int64Counter
	QuotaRejected      metric.Int64Counter
	QuotaUsage         metric.Int64ObservableGauge

	// Security Metrics
	RateLimitExceeded metric.Int64Counter

	// Storage Metrics
	StorageOperationTotal    metric.Int64Counter
	StorageOperationDuration metric.Float64Histogram
	StorageStates            metric.Int64ObservableGauge
	StorageTokens            metric.Int64ObservableGauge

	// Provider Metrics
	ProviderAPICallsTotal metric.Int64Counter
	ProviderAPIDuration   metric.Float64Histogram
	ProviderAPIErrors     metric.Int64Counter
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}
	var err error

	httpMeter := inst.Meter("http")
	serverMeter := inst.Meter("server")
	quotaMeter := inst.Meter("quota")
	storageMeter := inst.Meter("storage")
	providerMeter := inst.Meter("provider")

	// HTTP Layer Metrics
	m.HTTPRequestsTotal, err = httpMeter.Int64Counter(
		"ytoauth.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.requests.total counter: %w", err)
	}

	m.HTTPRequestDuration, err = httpMeter.Float64Histogram(
		"ytoauth.http.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.request.duration histogram: %w", err)
	}

	// OAuth Flow Metrics
	m.AuthorizationStarted, err = serverMeter.Int64Counter(
		"ytoauth.authorization.started",
		metric.WithDescription("Number of authorization flows started"),
		metric.WithUnit("{flow}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization.started counter: %w", err)
	}

	m.CallbackProcessed, err = serverMeter.Int64Counter(
		"ytoauth.callback.processed",
		metric.WithDescription("Number of authorization callbacks processed, by result"),
		metric.WithUnit("{callback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create callback.processed counter: %w", err)
	}

	m.TokenRefreshed, err = serverMeter.Int64Counter(
		"ytoauth.token.refreshed",
		metric.WithDescription("Number of token refresh attempts, by result"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.refreshed counter: %w", err)
	}

	m.SessionsCreated, err = serverMeter.Int64Counter(
		"ytoauth.sessions.created",
		metric.WithDescription("Number of sessions created after a successful callback"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions.created counter: %w", err)
	}

	// Quota Metrics
	m.QuotaUnitsConsumed, err = quotaMeter.Int64Counter(
		"ytoauth.quota.units.consumed",
		metric.WithDescription("Quota units successfully reserved"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create quota.units.consumed counter: %w", err)
	}

	m.QuotaRejected, err = quotaMeter.Int64Counter(
		"ytoauth.quota.rejected",
		metric.WithDescription("Operations rejected because the daily quota would be exceeded"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create quota.rejected counter: %w", err)
	}

	m.QuotaUsage, err = quotaMeter.Int64ObservableGauge(
		"ytoauth.quota.usage",
		metric.WithDescription("Quota units used in the current quota day"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create quota.usage gauge: %w", err)
	}

	// Security Metrics
	m.RateLimitExceeded, err = httpMeter.Int64Counter(
		"ytoauth.rate_limit.exceeded",
		metric.WithDescription("Number of requests rejected by the rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.exceeded counter: %w", err)
	}

	// Storage Metrics
	m.StorageOperationTotal, err = storageMeter.Int64Counter(
		"ytoauth.storage.operation.total",
		metric.WithDescription("Total number of storage operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operation.total counter: %w", err)
	}

	m.StorageOperationDuration, err = storageMeter.Float64Histogram(
		"ytoauth.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operation.duration histogram: %w", err)
	}

	m.StorageStates, err = storageMeter.Int64ObservableGauge(
		"ytoauth.storage.states.count",
		metric.WithDescription("Number of pending or processed authorization states"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.states.count gauge: %w", err)
	}

	m.StorageTokens, err = storageMeter.Int64ObservableGauge(
		"ytoauth.storage.tokens.count",
		metric.WithDescription("Number of stored session tokens"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.tokens.count gauge: %w", err)
	}

	// Provider Metrics
	m.ProviderAPICallsTotal, err = providerMeter.Int64Counter(
		"ytoauth.provider.api.calls.total",
		metric.WithDescription("Total number of upstream API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.calls.total counter: %w", err)
	}

	m.ProviderAPIDuration, err = providerMeter.Float64Histogram(
		"ytoauth.provider.api.duration",
		metric.WithDescription("Upstream API call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.duration histogram: %w", err)
	}

	m.ProviderAPIErrors, err = providerMeter.Int64Counter(
		"ytoauth.provider.api.errors.total",
		metric.WithDescription("Total number of failed upstream API calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.errors.total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, durationMs, attrs)
}

// RecordAuthorizationStarted records the start of an authorization flow
func (m *Metrics) RecordAuthorizationStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.AuthorizationStarted.Add(ctx, 1)
}

// RecordCallbackProcessed records a callback outcome ("success", "replayed",
// "invalid_state", "exchange_failed", "persist_failed", "denied").
func (m *Metrics) RecordCallbackProcessed(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.CallbackProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordTokenRefresh records a refresh attempt
func (m *Metrics) RecordTokenRefresh(ctx context.Context, success, rotated bool) {
	if m == nil {
		return
	}
	m.TokenRefreshed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", resultLabel(success)),
		attribute.Bool("rotated", rotated),
	))
}

// RecordSessionCreated records a new browser session
func (m *Metrics) RecordSessionCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionsCreated.Add(ctx, 1)
}

// RecordQuotaConsumed records units reserved against the daily quota
func (m *Metrics) RecordQuotaConsumed(ctx context.Context, units int64) {
	if m == nil {
		return
	}
	m.QuotaUnitsConsumed.Add(ctx, units)
}

// RecordQuotaRejected records an operation that would have exceeded the quota
func (m *Metrics) RecordQuotaRejected(ctx context.Context, units int64) {
	if m == nil {
		return
	}
	m.QuotaRejected.Add(ctx, 1, metric.WithAttributes(attribute.Int64("units", units)))
}

// RecordRateLimitExceeded records a rate limit violation
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, limiterType string) {
	if m == nil {
		return
	}
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(attribute.String("limiter_type", limiterType)))
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(ctx context.Context, operation, result string, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("result", result),
	)
	m.StorageOperationTotal.Add(ctx, 1, attrs)
	m.StorageOperationDuration.Record(ctx, durationMs, attrs)
}

// RecordProviderAPICall records an upstream API call. statusCode is 0 when
// no response was received.
func (m *Metrics) RecordProviderAPICall(ctx context.Context, provider, operation string, statusCode int, durationMs float64, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.Int("status_code", statusCode),
	)
	m.ProviderAPICallsTotal.Add(ctx, 1, attrs)
	m.ProviderAPIDuration.Record(ctx, durationMs, attrs)

	if err != nil {
		m.ProviderAPIErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("operation", operation),
		))
	}
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
