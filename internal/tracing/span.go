package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/ratecheck/internal/source"
)

// StartAttemptSpan starts a client span for one probe attempt.
func StartAttemptSpan(ctx context.Context, tracer trace.Tracer, d source.Descriptor, seq int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "HTTP "+d.Method,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", d.Method),
		attribute.String("url.full", d.URL),
		attribute.Int("ratecheck.attempt", seq),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable. A 429
// response is recorded as an error so rate limiting stands out in traces.
func EndSpan(span trace.Span, statusCode int, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if statusCode > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case statusCode == http.StatusTooManyRequests:
		span.SetStatus(codes.Error, http.StatusText(statusCode))
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
