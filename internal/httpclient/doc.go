// Package httpclient builds and sends the probe requests.
//
// A [RequestBuilder] turns a [source.Descriptor] into an *http.Request carrying
// the configured headers:
//
//	builder, err := httpclient.NewRequestBuilder(cfg.Headers)
//	if err != nil {
//		return err
//	}
//	req, err := builder.Build(ctx, descriptor)
//
// Trace context can be attached to every request with [RequestBuilder.WithInjector].
//
// [NewClient] returns an HTTP client with a pooled transport sized for the
// probe's concurrency. Response bodies are released with [Drain], which reads
// a bounded prefix and closes the body.
package httpclient
