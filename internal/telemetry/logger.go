package telemetry

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// traceFields correlates log lines with the span bound to the event's context.
// Span status is left to the handlers.
var traceFields = zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return
	}

	e.Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Bool("trace_sampled", sc.IsSampled())
})

// NewLogger creates a JSON logger tagged with the service name.
func NewLogger(w io.Writer, service string, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to parse log level '%s': %w", level, err)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(traceFields)

	return logger, nil
}

// RequestLogger binds ctx to base, so trace IDs reach every line, and
// tags the Lambda request ID when the runtime provides one.
func RequestLogger(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	logCtx := base.With().Ctx(ctx)
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logCtx = logCtx.Str("aws_request_id", lc.AwsRequestID)
	}

	return logCtx.Logger()
}
