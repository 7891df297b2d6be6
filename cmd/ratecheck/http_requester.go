package main

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/torosent/ratecheck/internal/httpclient"
	"github.com/torosent/ratecheck/internal/runner"
	"github.com/torosent/ratecheck/internal/source"
	"github.com/torosent/ratecheck/internal/tracing"
)

// httpRequester implements runner.Transport for HTTP.
type httpRequester struct {
	client   *http.Client
	builder  *httpclient.RequestBuilder
	tracer   trace.Tracer
	attempts atomic.Int64
}

// Send executes one attempt. Any response, whatever its status, is an
// observation; only a missing response is an error.
func (r *httpRequester) Send(ctx context.Context, d source.Descriptor) (runner.Observation, error) {
	seq := int(r.attempts.Add(1))
	ctx, span := tracing.StartAttemptSpan(ctx, r.tracer, d, seq)

	start := time.Now()
	req, err := r.builder.Build(ctx, d)
	if err != nil {
		tracing.EndSpan(span, 0, err)
		return runner.Observation{}, err
	}

	resp, err := r.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		tracing.EndSpan(span, 0, err)
		return runner.Observation{Latency: latency}, err
	}
	// The body is never inspected; drain failures do not affect the outcome.
	_ = httpclient.Drain(resp.Body)

	tracing.EndSpan(span, resp.StatusCode, nil)
	return runner.Observation{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Latency:    latency,
	}, nil
}

// zapFailureLogger reports failed attempts through the run logger.
type zapFailureLogger struct {
	logger *zap.Logger
}

func (l *zapFailureLogger) LogFailure(d source.Descriptor, err error) {
	if err == nil {
		return
	}
	l.logger.Warn("request failed",
		zap.String("method", d.Method),
		zap.String("url", d.URL),
		zap.Error(err),
	)
}
