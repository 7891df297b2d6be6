package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/torosent/ratecheck/internal/source"
)

func TestBuildRequestWithHeaders(t *testing.T) {
	builder, err := NewRequestBuilder(map[string]string{
		"content-type": "application/json",
		"X-Trace-Id":   "12345",
	})
	if err != nil {
		t.Fatalf("expected builder, got error: %v", err)
	}

	d := source.Descriptor{Method: "post", URL: "http://example.com/api"}
	req, err := builder.Build(context.Background(), d)
	if err != nil {
		t.Fatalf("expected request, got error: %v", err)
	}

	if req.Method != http.MethodPost {
		t.Fatalf("expected method POST, got %s", req.Method)
	}
	if req.URL.String() != d.URL {
		t.Fatalf("expected URL %s, got %s", d.URL, req.URL.String())
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("expected canonical Content-Type header, got %q", req.Header.Get("Content-Type"))
	}
	if req.Header.Get("X-Trace-Id") != "12345" {
		t.Fatalf("expected X-Trace-Id header, got %q", req.Header.Get("X-Trace-Id"))
	}
	if req.ContentLength != 0 {
		t.Fatalf("expected empty body, got content length %d", req.ContentLength)
	}
}

func TestRequestBuilder_InvalidHeaderKey(t *testing.T) {
	if _, err := NewRequestBuilder(map[string]string{"   ": "value"}); err == nil {
		t.Fatal("expected error for blank header key")
	}
}

func TestRequestBuilder_InvalidHeaderKeyWithNewline(t *testing.T) {
	if _, err := NewRequestBuilder(map[string]string{"X-Bad\r\nKey": "value"}); err == nil {
		t.Fatal("expected error for header key with newline")
	}
}

func TestRequestBuilder_InvalidHeaderValueWithNewline(t *testing.T) {
	if _, err := NewRequestBuilder(map[string]string{"X-Test": "bad\r\nvalue"}); err == nil {
		t.Fatal("expected error for header value with newline")
	}
}

func TestRequestBuilder_EmptyHeaderValueAllowed(t *testing.T) {
	builder, err := NewRequestBuilder(map[string]string{"X-Empty": ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, err := builder.Build(context.Background(), source.Descriptor{Method: "GET", URL: "http://example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := req.Header["X-Empty"]; !ok {
		t.Fatal("expected X-Empty header to be present")
	}
}

func TestRequestBuilder_MethodFallbackAndVerbs(t *testing.T) {
	builder, err := NewRequestBuilder(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		in   string
		want string
	}{
		{"", http.MethodGet},
		{"get", http.MethodGet},
		{" post ", http.MethodPost},
	}
	for _, tt := range tests {
		req, err := builder.Build(context.Background(), source.Descriptor{Method: tt.in, URL: "http://example.com"})
		if err != nil {
			t.Fatalf("Build(%q) error: %v", tt.in, err)
		}
		if req.Method != tt.want {
			t.Errorf("Build(%q) method = %s, want %s", tt.in, req.Method, tt.want)
		}
	}

	if _, err := builder.Build(context.Background(), source.Descriptor{Method: "GET"}); err == nil {
		t.Fatal("expected error for missing URL")
	}
}

func TestRequestBuilder_RequestsDoNotShareHeaders(t *testing.T) {
	builder, err := NewRequestBuilder(map[string]string{"X-Test": "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := source.Descriptor{Method: "GET", URL: "http://example.com"}
	first, _ := builder.Build(context.Background(), d)
	first.Header.Set("X-Test", "changed")

	second, _ := builder.Build(context.Background(), d)
	if got := second.Header.Get("X-Test"); got != "1" {
		t.Fatalf("expected builder headers to be unchanged, got %q", got)
	}
}

func TestRequestBuilder_WithInjector(t *testing.T) {
	base, err := NewRequestBuilder(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	type key struct{}
	builder := base.WithInjector(func(ctx context.Context, h http.Header) {
		if v, ok := ctx.Value(key{}).(string); ok {
			h.Set("Traceparent", v)
		}
	})

	ctx := context.WithValue(context.Background(), key{}, "00-abc-def-01")
	d := source.Descriptor{Method: "GET", URL: "http://example.com"}
	req, err := builder.Build(ctx, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := req.Header.Get("Traceparent"); got != "00-abc-def-01" {
		t.Fatalf("expected injected header, got %q", got)
	}

	plain, _ := base.Build(ctx, d)
	if plain.Header.Get("Traceparent") != "" {
		t.Fatal("expected base builder to stay without injector")
	}
}

type countingBody struct {
	io.Reader
	closed bool
}

func (b *countingBody) Close() error {
	b.closed = true
	return nil
}

func TestDrainReadsBoundedPrefix(t *testing.T) {
	payload := strings.NewReader(strings.Repeat("x", MaxDrainBytes*2))
	body := &countingBody{Reader: payload}

	if err := Drain(body); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if !body.closed {
		t.Fatal("expected body to be closed")
	}
	if payload.Len() != MaxDrainBytes {
		t.Fatalf("expected %d unread bytes, got %d", MaxDrainBytes, payload.Len())
	}
	if err := Drain(nil); err != nil {
		t.Fatalf("Drain(nil) error = %v", err)
	}
}

func TestClientSendsThroughServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "slow down")
	}))
	defer server.Close()

	builder, err := NewRequestBuilder(map[string]string{"x-api-key": "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, err := builder.Build(context.Background(), source.Descriptor{Method: "GET", URL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	client := NewClient(time.Second, 4)
	defer client.CloseIdleConnections()
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if err := Drain(resp.Body); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "5" {
		t.Fatalf("expected Retry-After header, got %q", resp.Header.Get("Retry-After"))
	}
}

func TestClientTimeoutApplied(t *testing.T) {
	timeout := 50 * time.Millisecond
	client := NewClient(timeout, 64)
	defer client.CloseIdleConnections()

	if client.Timeout != timeout {
		t.Fatalf("expected client timeout %s, got %s", timeout, client.Timeout)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(timeout * 3)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}

	elapsed := time.Since(start)
	if elapsed < timeout {
		t.Fatalf("request returned too quickly: %s < %s", elapsed, timeout)
	}
	if elapsed > timeout*5 {
		t.Fatalf("request took too long: %s", elapsed)
	}

	if !errors.Is(err, context.DeadlineExceeded) {
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			t.Fatalf("expected timeout error, got %v", err)
		}
	}

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.MaxIdleConnsPerHost != 64 {
		t.Fatalf("expected 64 idle connections per host, got %d", transport.MaxIdleConnsPerHost)
	}
	if transport.IdleConnTimeout == 0 {
		t.Fatalf("expected transport to set idle connection timeout")
	}
}
