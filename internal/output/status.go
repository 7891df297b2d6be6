package output

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/torosent/ratecheck/internal/runner"
)

// StatusPrinter writes one line per completed attempt with the response
// status, e.g. "200 OK". It implements runner.Observer.
type StatusPrinter struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewStatusPrinter returns a printer that writes to w. A nil writer or quiet
// disables output.
func NewStatusPrinter(w io.Writer, quiet bool) *StatusPrinter {
	if quiet || w == nil {
		w = io.Discard
	}
	return &StatusPrinter{writer: w}
}

func (p *StatusPrinter) Observe(_ int64, obs runner.Observation) {
	if p == nil || p.writer == io.Discard {
		return
	}
	line := StatusLine(obs.StatusCode)
	p.mu.Lock()
	fmt.Fprintln(p.writer, line)
	p.mu.Unlock()
}

// StatusLine formats a status code with its reason phrase.
func StatusLine(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return fmt.Sprintf("%d", code)
	}
	return strings.TrimSpace(fmt.Sprintf("%d %s", code, text))
}
