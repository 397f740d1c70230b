// Package instrumentation provides OpenTelemetry metrics and traces for the
// YouTube OAuth service.
//
// A disabled Instrumentation (the default) uses no-op providers, and a nil
// *Instrumentation is safe to use everywhere: Tracer returns a no-op tracer
// and Metrics returns nil, whose Record methods do nothing.
//
// # Prometheus Metrics
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:     "youtube-oauth",
//		ServiceVersion:  version,
//		Enabled:         true,
//		MetricsExporter: instrumentation.MetricsExporterPrometheus,
//	})
//	if err != nil {
//		return err
//	}
//	defer inst.Shutdown(context.Background())
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// # Available Metrics
//
// HTTP layer:
//   - ytoauth.http.requests.total, ytoauth.http.request.duration
//   - ytoauth.rate_limit.exceeded
//
// OAuth flow:
//   - ytoauth.authorization.started
//   - ytoauth.callback.processed (result)
//   - ytoauth.token.refreshed (result, rotated)
//   - ytoauth.sessions.created
//
// Quota:
//   - ytoauth.quota.units.consumed, ytoauth.quota.rejected
//   - ytoauth.quota.usage (gauge)
//
// Storage:
//   - ytoauth.storage.operation.total, ytoauth.storage.operation.duration
//   - ytoauth.storage.states.count, ytoauth.storage.tokens.count (gauges)
//
// Upstream providers (google, youtube):
//   - ytoauth.provider.api.calls.total, ytoauth.provider.api.duration
//   - ytoauth.provider.api.errors.total
//
// # Tests
//
// Config.MetricReader and Config.SpanProcessor accept an
// sdkmetric.NewManualReader and a tracetest.NewSpanRecorder so tests can
// assert on recorded data without an exporter.
package instrumentation
