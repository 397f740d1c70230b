package instrumentation

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultServiceName is used when Config.ServiceName is empty.
	DefaultServiceName = "youtube-oauth"
	// DefaultServiceVersion is used when Config.ServiceVersion is empty.
	DefaultServiceVersion = "unknown"

	// MetricsExporterPrometheus exposes metrics through a Prometheus registry.
	MetricsExporterPrometheus = "prometheus"
	// MetricsExporterNone records metrics without exporting them.
	MetricsExporterNone = "none"

	scopePrefix = "github.com/giantswarm/youtube-oauth/"
)

// Config holds instrumentation configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Enabled selects real SDK providers. When false every meter and tracer
	// is a no-op.
	Enabled bool

	// MetricsExporter is "prometheus" or "none" (default).
	MetricsExporter string

	// PrometheusRegisterer receives the exporter's collector.
	// Defaults to prometheus.DefaultRegisterer.
	PrometheusRegisterer prometheus.Registerer

	// MetricReader is an additional reader, mostly for tests
	// (sdkmetric.NewManualReader()).
	MetricReader sdkmetric.Reader

	// SpanProcessor receives finished spans, mostly for tests
	// (tracetest.NewSpanRecorder()).
	SpanProcessor sdktrace.SpanProcessor

	// Resource overrides the default service resource.
	Resource *resource.Resource
}

// Instrumentation owns the meter and tracer providers and the metric instruments.
type Instrumentation struct {
	config   Config
	resource *resource.Resource

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metrics        *Metrics

	// registered during New only
	shutdownFuncs []func(context.Context) error
	shutdownOnce  sync.Once
}

// New creates an Instrumentation from config.
func New(config Config) (*Instrumentation, error) {
	if config.ServiceName == "" {
		config.ServiceName = DefaultServiceName
	}
	if config.ServiceVersion == "" {
		config.ServiceVersion = DefaultServiceVersion
	}
	if config.MetricsExporter == "" {
		config.MetricsExporter = MetricsExporterNone
	}

	res := config.Resource
	if res == nil {
		var err error
		res, err = resource.New(context.Background(),
			resource.WithAttributes(
				semconv.ServiceName(config.ServiceName),
				semconv.ServiceVersion(config.ServiceVersion),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create resource: %w", err)
		}
	}

	inst := &Instrumentation{config: config, resource: res}

	if config.Enabled {
		if err := inst.initializeProviders(); err != nil {
			return nil, fmt.Errorf("failed to initialize providers: %w", err)
		}
	} else {
		inst.meterProvider = noop.NewMeterProvider()
		inst.tracerProvider = tracenoop.NewTracerProvider()
	}

	metrics, err := newMetrics(inst)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	inst.metrics = metrics

	return inst, nil
}

func (i *Instrumentation) initializeProviders() error {
	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(i.resource)}

	switch i.config.MetricsExporter {
	case MetricsExporterPrometheus:
		var promOpts []otelprom.Option
		if i.config.PrometheusRegisterer != nil {
			promOpts = append(promOpts, otelprom.WithRegisterer(i.config.PrometheusRegisterer))
		}
		exporter, err := otelprom.New(promOpts...)
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(exporter))
	case MetricsExporterNone:
	default:
		return fmt.Errorf("unsupported metrics exporter %q", i.config.MetricsExporter)
	}
	if i.config.MetricReader != nil {
		meterOpts = append(meterOpts, sdkmetric.WithReader(i.config.MetricReader))
	}

	mp := sdkmetric.NewMeterProvider(meterOpts...)
	i.meterProvider = mp
	i.shutdownFuncs = append(i.shutdownFuncs, mp.Shutdown)

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(i.resource)}
	if i.config.SpanProcessor != nil {
		traceOpts = append(traceOpts, sdktrace.WithSpanProcessor(i.config.SpanProcessor))
	}
	tp := sdktrace.NewTracerProvider(traceOpts...)
	i.tracerProvider = tp
	i.shutdownFuncs = append(i.shutdownFuncs, tp.Shutdown)

	return nil
}

// Shutdown flushes and stops the providers. Only the first call has effect.
func (i *Instrumentation) Shutdown(ctx context.Context) error {
	if i == nil {
		return nil
	}
	var shutdownErr error
	i.shutdownOnce.Do(func() {
		for _, fn := range i.shutdownFuncs {
			if err := fn(ctx); err != nil && shutdownErr == nil {
				shutdownErr = err
			}
		}
	})
	return shutdownErr
}

// Meter returns the meter for a layer ("http", "server", "quota", "storage", "provider").
func (i *Instrumentation) Meter(scope string) metric.Meter {
	if i == nil {
		return noop.NewMeterProvider().Meter(scopePrefix + scope)
	}
	return i.meterProvider.Meter(scopePrefix + scope)
}

// Tracer returns the tracer for a layer. A nil Instrumentation yields a no-op tracer.
func (i *Instrumentation) Tracer(scope string) trace.Tracer {
	if i == nil {
		return tracenoop.NewTracerProvider().Tracer(scopePrefix + scope)
	}
	return i.tracerProvider.Tracer(scopePrefix + scope)
}

// Metrics returns the metric instruments. It is nil for a nil Instrumentation;
// every Record method accepts a nil receiver.
func (i *Instrumentation) Metrics() *Metrics {
	if i == nil {
		return nil
	}
	return i.metrics
}

// MeterProvider returns the underlying meter provider.
func (i *Instrumentation) MeterProvider() metric.MeterProvider {
	return i.meterProvider
}

// TracerProvider returns the underlying tracer provider.
func (i *Instrumentation) TracerProvider() trace.TracerProvider {
	return i.tracerProvider
}

// SizeCallback reports the current number of records in a store.
type SizeCallback func() int64

// RegisterStorageSizeCallbacks observes the number of pending authorization
// states and stored session tokens. Either callback may be nil.
func (i *Instrumentation) RegisterStorageSizeCallbacks(states, tokens SizeCallback) error {
	if i == nil {
		return nil
	}
	_, err := i.Meter("storage").RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			if states != nil {
				o.ObserveInt64(i.metrics.StorageStates, states())
			}
			if tokens != nil {
				o.ObserveInt64(i.metrics.StorageTokens, tokens())
			}
			return nil
		},
		i.metrics.StorageStates,
		i.metrics.StorageTokens,
	)
	return err
}

// RegisterQuotaUsageCallback observes the current daily quota usage.
// Errors from usage are returned to the SDK and the observation is skipped.
func (i *Instrumentation) RegisterQuotaUsageCallback(usage func(context.Context) (int64, error)) error {
	if i == nil || usage == nil {
		return nil
	}
	_, err := i.Meter("quota").RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			v, err := usage(ctx)
			if err != nil {
				return err
			}
			o.ObserveInt64(i.metrics.QuotaUsage, v)
			return nil
		},
		i.metrics.QuotaUsage,
	)
	return err
}
