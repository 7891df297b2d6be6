package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/torosent/ratecheck/internal/source"
)

// MaxDrainBytes bounds how much of a response body is read before the
// connection is released. Bodies are never inspected.
const MaxDrainBytes = 64 << 10

// HeaderInjector adds headers derived from ctx, such as trace context, to an
// outgoing request.
type HeaderInjector func(ctx context.Context, headers http.Header)

type RequestBuilder struct {
	headers  http.Header
	injector HeaderInjector
}

func NewRequestBuilder(headers map[string]string) (*RequestBuilder, error) {
	canonical := http.Header{}
	for key, value := range headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)

		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}

		canonical.Set(canonicalKey, value)
	}

	return &RequestBuilder{headers: canonical}, nil
}

// WithInjector returns a copy of the builder that runs inject on every request.
func (b *RequestBuilder) WithInjector(inject HeaderInjector) *RequestBuilder {
	clone := *b
	clone.injector = inject
	return &clone
}

// Build creates the request for one descriptor. POST requests carry no body.
func (b *RequestBuilder) Build(ctx context.Context, d source.Descriptor) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.ToUpper(strings.TrimSpace(d.Method))
	if method == "" {
		method = http.MethodGet
	}

	target := strings.TrimSpace(d.URL)
	if target == "" {
		return nil, errors.New("target URL is required")
	}

	req, err := http.NewRequestWithContext(ctx, method, target, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header = b.headers.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if b.injector != nil {
		b.injector(ctx, req.Header)
	}

	return req, nil
}

// Drain reads at most MaxDrainBytes of body and closes it so the connection
// can be reused.
func Drain(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, err := io.Copy(io.Discard, io.LimitReader(body, MaxDrainBytes))
	closeErr := body.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// NewClient returns a client whose pool keeps up to maxConnsPerHost idle
// connections, so a full window of concurrent requests can reuse them.
func NewClient(timeout time.Duration, maxConnsPerHost int) *http.Client {
	if timeout < 0 {
		timeout = 0
	}
	if maxConnsPerHost < 32 {
		maxConnsPerHost = 32
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   maxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
