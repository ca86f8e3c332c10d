// Package telemetry wires logging and tracing for the Lambda functions.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const shutdownTimeout = 400 * time.Millisecond

// Provider owns the tracer provider installed for the function, if any.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
}

// Setup exports traces over OTLP gRPC when OTEL_EXPORTER_OTLP_ENDPOINT is set.
// Otherwise it leaves the global no-op tracer provider in place.
func Setup(ctx context.Context, serviceName string) (*Provider, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return &Provider{}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exp, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tracerProvider: tp}, nil
}

func (p *Provider) Tracer(name string) trace.Tracer {
	if p.tracerProvider == nil {
		return otel.Tracer(name)
	}

	return p.tracerProvider.Tracer(name)
}

// ForceFlush pushes buffered spans before the runtime freezes the sandbox.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}

	return p.tracerProvider.ForceFlush(ctx)
}

// Shutdown flushes and stops the exporter. The provider must not be used afterwards.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}

	return p.tracerProvider.Shutdown(ctx)
}

// OnShutdown returns a callback for lambda.WithEnableSIGTERM. The runtime allows
// about 500ms after SIGTERM, so the shutdown is bounded by shutdownTimeout.
func (p *Provider) OnShutdown(logger zerolog.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := p.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to shut down tracing")
			return
		}
		logger.Debug().Msg("Tracing shut down")
	}
}

// Flushing wraps a Lambda handler so spans are exported at the end of every invocation.
func Flushing[In, Out any](p *Provider, handler func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	return func(ctx context.Context, in In) (Out, error) {
		out, err := handler(ctx, in)
		if flushErr := p.ForceFlush(context.WithoutCancel(ctx)); flushErr != nil {
			otel.Handle(fmt.Errorf("failed to flush spans: %w", flushErr))
		}

		return out, err
	}
}
