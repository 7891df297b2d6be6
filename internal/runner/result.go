package runner

import (
	"fmt"
	"net/http"
	"time"

	"github.com/torosent/ratecheck/internal/source"
)

// StopReason is the terminal state of a run.
type StopReason int

const (
	// ReasonNone means no decision was taken, which only happens when the
	// caller's context ends the run.
	ReasonNone StopReason = iota
	ReasonRateLimited
	ReasonTimeExpired
	ReasonCountExhausted
	ReasonTransportError
)

func (r StopReason) String() string {
	switch r {
	case ReasonRateLimited:
		return "rate_limited"
	case ReasonTimeExpired:
		return "time_expired"
	case ReasonCountExhausted:
		return "count_exhausted"
	case ReasonTransportError:
		return "transport_error"
	default:
		return "none"
	}
}

// MarshalText renders the reason by name in JSON and YAML reports.
func (r StopReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Result is the outcome of a run, captured when the stop decision was made.
type Result struct {
	Reason    StopReason
	Elapsed   time.Duration
	Completed int64

	// StatusCode and Header describe the response that decided the run.
	// They are empty for TransportError.
	StatusCode int
	Header     http.Header

	// Err is set for TransportError.
	Err error
}

// TransportError reports an attempt that produced no response.
type TransportError struct {
	Request source.Descriptor
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Request.Method, e.Request.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
