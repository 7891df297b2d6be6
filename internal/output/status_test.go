package output

import (
	"bytes"
	"net/http"
	"sync"
	"testing"

	"github.com/torosent/ratecheck/internal/runner"
)

func TestStatusPrinterWritesOneLinePerAttempt(t *testing.T) {
	var buf bytes.Buffer
	p := NewStatusPrinter(&buf, false)

	p.Observe(1, runner.Observation{StatusCode: http.StatusOK})
	p.Observe(2, runner.Observation{StatusCode: http.StatusTooManyRequests})

	if got, want := buf.String(), "200 OK\n429 Too Many Requests\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestStatusPrinterQuiet(t *testing.T) {
	var buf bytes.Buffer
	p := NewStatusPrinter(&buf, true)
	p.Observe(1, runner.Observation{StatusCode: http.StatusOK})
	if buf.Len() != 0 {
		t.Fatalf("quiet printer wrote %q", buf.String())
	}

	// nil printer is a no-op
	var nilPrinter *StatusPrinter
	nilPrinter.Observe(1, runner.Observation{StatusCode: 200})
}

func TestStatusPrinterConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	p := NewStatusPrinter(&buf, false)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(seq int64) {
			defer wg.Done()
			p.Observe(seq, runner.Observation{StatusCode: http.StatusServiceUnavailable})
		}(int64(i + 1))
	}
	wg.Wait()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 50 {
		t.Fatalf("expected 50 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if string(line) != "503 Service Unavailable" {
			t.Errorf("unexpected line %q", line)
		}
	}
}

func TestStatusLineUnknownCode(t *testing.T) {
	if got := StatusLine(299); got != "299" {
		t.Errorf("StatusLine(299) = %q, want 299", got)
	}
	if got := StatusLine(http.StatusNotFound); got != "404 Not Found" {
		t.Errorf("StatusLine(404) = %q, want 404 Not Found", got)
	}
}
