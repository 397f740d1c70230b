package instrumentation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
//
// Never set these to credential values. Access tokens, refresh tokens,
// authorization codes, PKCE verifiers and state values stay out of traces;
// only metadata such as presence flags, expiry and result labels go in.
const (
	// OAuth flow attributes
	AttrPKCEMethod     = "oauth.pkce.method"
	AttrStatePresent   = "oauth.state.present"
	AttrStateProcessed = "oauth.state.processed"
	AttrTokenType      = "oauth.token_type"    //nolint:gosec // token type name, not a token
	AttrTokenRotated   = "oauth.token.rotated" //nolint:gosec // boolean flag
	AttrExpiresIn      = "oauth.expires_in"
	AttrCallbackResult = "oauth.callback.result"
	AttrError          = "oauth.error"

	// Quota attributes
	AttrQuotaUnits = "quota.units"
	AttrQuotaUsage = "quota.usage"
	AttrQuotaLimit = "quota.limit"
	AttrQuotaDay   = "quota.day"

	// YouTube attributes
	AttrYouTubeOperation  = "youtube.operation"
	AttrYouTubePlaylistID = "youtube.playlist_id"
	AttrYouTubeResults    = "youtube.results"

	// Storage attributes
	AttrStorageOperation = "storage.operation"
	AttrStorageResult    = "storage.result"
	AttrStorageType      = "storage.type"

	// Provider attributes
	AttrProviderName      = "provider.name"
	AttrProviderOperation = "provider.operation"
	AttrProviderStatus    = "provider.status"

	// Security attributes
	AttrClientIP = "security.client_ip"

	// HTTP attributes
	AttrHTTPRoute      = "http.route"
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// EndSpan records err (if any) or success and ends the span.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		RecordError(span, err)
	} else {
		SetSpanSuccess(span)
	}
	span.End()
}

// AddQuotaAttributes adds quota attributes to a span (nil-safe)
func AddQuotaAttributes(span trace.Span, units, usage, limit int64, day string) {
	SetSpanAttributes(span,
		attribute.Int64(AttrQuotaUnits, units),
		attribute.Int64(AttrQuotaUsage, usage),
		attribute.Int64(AttrQuotaLimit, limit),
		attribute.String(AttrQuotaDay, day),
	)
}

// AddStorageAttributes adds storage operation attributes to a span (nil-safe)
func AddStorageAttributes(span trace.Span, operation, storageType string) {
	SetSpanAttributes(span,
		attribute.String(AttrStorageOperation, operation),
		attribute.String(AttrStorageType, storageType),
	)
}

// AddProviderAttributes adds provider attributes to a span (nil-safe)
func AddProviderAttributes(span trace.Span, providerName, operation string) {
	SetSpanAttributes(span,
		attribute.String(AttrProviderName, providerName),
		attribute.String(AttrProviderOperation, operation),
	)
}

// AddHTTPAttributes adds HTTP request attributes to a span (nil-safe)
func AddHTTPAttributes(span trace.Span, method, route string, statusCode int) {
	SetSpanAttributes(span,
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.Int(AttrHTTPStatusCode, statusCode),
	)
}

// AddTokenAttributes adds non-secret token metadata to a span (nil-safe)
func AddTokenAttributes(span trace.Span, tokenType string, expiresIn time.Duration) {
	SetSpanAttributes(span,
		attribute.String(AttrTokenType, tokenType),
		attribute.Int64(AttrExpiresIn, int64(expiresIn.Seconds())),
	)
}

// StartProviderCall starts a client span for an upstream call and returns a
// finish function that ends the span and records the provider metrics.
func (i *Instrumentation) StartProviderCall(ctx context.Context, provider, operation string) (context.Context, func(statusCode int, err error)) {
	start := time.Now()
	ctx, span := i.Tracer("provider").Start(ctx, provider+"."+operation, trace.WithSpanKind(trace.SpanKindClient))
	AddProviderAttributes(span, provider, operation)

	return ctx, func(statusCode int, err error) {
		if statusCode != 0 {
			SetSpanAttributes(span, attribute.Int(AttrProviderStatus, statusCode))
		}
		i.Metrics().RecordProviderAPICall(ctx, provider, operation, statusCode, float64(time.Since(start).Milliseconds()), err)
		EndSpan(span, err)
	}
}
