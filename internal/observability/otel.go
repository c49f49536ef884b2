// Package observability wires OpenTelemetry tracing. Spans are exported to
// an OTLP collector when an endpoint is configured, otherwise to stdout.
package observability

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/worldloom/worldloom-backend/internal/logger"
)

const ServiceName = "worldloom-backend"

// Options configures the tracer provider.
type Options struct {
	Endpoint    string  // OTLP HTTP endpoint; empty selects the stdout exporter
	Insecure    bool    // plain HTTP to the collector
	SampleRatio float64 // parent-based trace sample ratio, clamped to [0,1]
	Version     string
}

// Tracing owns the installed tracer provider.
type Tracing struct {
	provider *sdktrace.TracerProvider
	log      *logger.Logger
}

// Setup builds and installs the global tracer provider and propagator.
func Setup(ctx context.Context, opts Options, log *logger.Logger) (*Tracing, error) {
	log = log.With("service", "Tracing")

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(ServiceName),
		semconv.ServiceVersionKey.String(strings.TrimSpace(opts.Version)),
	))
	if err != nil {
		return nil, err
	}

	exporter, err := buildExporter(ctx, opts, log)
	if err != nil {
		return nil, err
	}

	ratio := opts.SampleRatio
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info("Tracing initialized", "endpoint", opts.Endpoint, "sample_ratio", ratio)
	return &Tracing{provider: tp, log: log}, nil
}

// Shutdown flushes pending spans and releases the provider.
func (t *Tracing) Shutdown(ctx context.Context) {
	if t == nil || t.provider == nil {
		return
	}
	if err := t.provider.Shutdown(ctx); err != nil {
		t.log.Warn("Tracer provider shutdown failed", "error", err)
	}
}

func buildExporter(ctx context.Context, opts Options, log *logger.Logger) (sdktrace.SpanExporter, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint != "" {
		httpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if opts.Insecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, httpOpts...)
	}
	log.Warn("No OTLP endpoint configured, exporting spans to stdout")
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}
