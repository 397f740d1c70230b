package instrumentation

import (
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestInstrumentation(t *testing.T) (*Instrumentation, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	inst, err := New(Config{Enabled: true, MetricReader: reader})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = inst.Shutdown(context.Background()) })
	return inst, reader
}

// sumCounters returns the total of every data point per int64 sum metric.
func sumCounters(t *testing.T, reader sdkmetric.Reader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					out[m.Name] += dp.Value
				}
			}
		}
	}
	return out
}

func TestMetrics_Record(t *testing.T) {
	inst, reader := newTestInstrumentation(t)
	ctx := context.Background()
	m := inst.Metrics()

	m.RecordHTTPRequest(ctx, "GET", "/v1/auth", 302, 2.0)
	m.RecordHTTPRequest(ctx, "GET", "/v1/quota", 200, 1.0)
	m.RecordAuthorizationStarted(ctx)
	m.RecordCallbackProcessed(ctx, "success")
	m.RecordCallbackProcessed(ctx, "replayed")
	m.RecordTokenRefresh(ctx, true, false)
	m.RecordSessionCreated(ctx)
	m.RecordQuotaConsumed(ctx, 100)
	m.RecordQuotaConsumed(ctx, 50)
	m.RecordQuotaRejected(ctx, 100)
	m.RecordRateLimitExceeded(ctx, "ip")
	m.RecordStorageOperation(ctx, "save_state", "success", 0.4)
	m.RecordProviderAPICall(ctx, "google", "exchange_code", 200, 80, nil)
	m.RecordProviderAPICall(ctx, "youtube", "search", 500, 40, errors.New("boom"))

	got := sumCounters(t, reader)
	want := map[string]int64{
		"ytoauth.http.requests.total":       2,
		"ytoauth.authorization.started":     1,
		"ytoauth.callback.processed":        2,
		"ytoauth.token.refreshed":           1,
		"ytoauth.sessions.created":          1,
		"ytoauth.quota.units.consumed":      150,
		"ytoauth.quota.rejected":            1,
		"ytoauth.rate_limit.exceeded":       1,
		"ytoauth.storage.operation.total":   1,
		"ytoauth.provider.api.calls.total":  2,
		"ytoauth.provider.api.errors.total": 1,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %d, want %d", name, got[name], v)
		}
	}
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "GET", "/", 200, 1)
	m.RecordAuthorizationStarted(ctx)
	m.RecordCallbackProcessed(ctx, "success")
	m.RecordTokenRefresh(ctx, false, false)
	m.RecordSessionCreated(ctx)
	m.RecordQuotaConsumed(ctx, 1)
	m.RecordQuotaRejected(ctx, 1)
	m.RecordRateLimitExceeded(ctx, "ip")
	m.RecordStorageOperation(ctx, "op", "error", 1)
	m.RecordProviderAPICall(ctx, "google", "refresh", 0, 1, errors.New("x"))
}

func TestMetrics_DisabledInstrumentation(t *testing.T) {
	inst, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = inst.Shutdown(context.Background()) }()

	// no-op instruments accept every call
	inst.Metrics().RecordQuotaConsumed(context.Background(), 100)
	inst.Metrics().RecordStorageOperation(context.Background(), "find_token", "not_found", 0.1)
}
