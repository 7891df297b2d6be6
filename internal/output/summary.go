package output

import (
	"time"

	"github.com/torosent/ratecheck/internal/metrics"
	"github.com/torosent/ratecheck/internal/runner"
)

// RunInfo describes a probe independently of its outcome.
type RunInfo struct {
	RunID       string
	StartedAt   time.Time
	Target      string
	Method      string
	Concurrency int
	MaxRequests int
	TimeBudget  time.Duration
}

// Summary is the outcome of one probe as written to reports and history.
type Summary struct {
	RunID        string              `json:"run_id" yaml:"run_id"`
	StartedAt    time.Time           `json:"started_at" yaml:"started_at"`
	Target       string              `json:"target" yaml:"target"`
	Method       string              `json:"method" yaml:"method"`
	Concurrency  int                 `json:"concurrency" yaml:"concurrency"`
	MaxRequests  int                 `json:"max_requests" yaml:"max_requests"`
	TimeBudgetMs int64               `json:"time_budget_ms" yaml:"time_budget_ms"`
	Reason       string              `json:"reason" yaml:"reason"`
	ElapsedMs    int64               `json:"elapsed_ms" yaml:"elapsed_ms"`
	Requests     int64               `json:"requests" yaml:"requests"`
	StatusCode   int                 `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Headers      map[string][]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Error        string              `json:"error,omitempty" yaml:"error,omitempty"`
	Stats        metrics.Stats       `json:"stats" yaml:"stats"`
}

func NewSummary(info RunInfo, res runner.Result, stats metrics.Stats) Summary {
	s := Summary{
		RunID:        info.RunID,
		StartedAt:    info.StartedAt,
		Target:       info.Target,
		Method:       info.Method,
		Concurrency:  info.Concurrency,
		MaxRequests:  info.MaxRequests,
		TimeBudgetMs: info.TimeBudget.Milliseconds(),
		Reason:       res.Reason.String(),
		ElapsedMs:    res.Elapsed.Milliseconds(),
		Requests:     res.Completed,
		Stats:        stats,
	}
	// Headers are reported only for the response that triggered rate limiting.
	if res.Reason == runner.ReasonRateLimited {
		s.StatusCode = res.StatusCode
		if len(res.Header) > 0 {
			s.Headers = make(map[string][]string, len(res.Header))
			for k, v := range res.Header {
				s.Headers[k] = append([]string(nil), v...)
			}
		}
	}
	if res.Err != nil {
		s.Error = res.Err.Error()
	}
	return s
}
