package trace

import (
	"context"
	"fmt"
	"io"

	"github.com/kerraform/kelock/internal/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/kerraform/kelock"

type ExporterType string

const (
	ExporterTypeConsole ExporterType = "console"
)

func NewConsoleExporter(w io.Writer) (sdktrace.SpanExporter, error) {
	return stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
		stdouttrace.WithoutTimestamps(),
	)
}

// Provider hands out the tracer used across the run. Shutdown flushes pending
// spans.
type Provider struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

func NewNoopProvider() *Provider {
	return &Provider{
		provider: trace.NewNoopTracerProvider(),
		shutdown: func(context.Context) error { return nil },
	}
}

func NewProvider(exporterType ExporterType, w io.Writer) (*Provider, error) {
	var exp sdktrace.SpanExporter
	var err error

	switch exporterType {
	case ExporterTypeConsole:
		exp, err = NewConsoleExporter(w)
	default:
		return nil, fmt.Errorf("invalid trace exporter type, got: %s", exporterType)
	}
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "kelock"),
			attribute.String("service.version", version.Version),
		)),
	)

	return &Provider{
		provider: tp,
		shutdown: tp.Shutdown,
	}, nil
}

func (p *Provider) Tracer() trace.Tracer {
	return p.provider.Tracer(tracerName)
}

func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}
