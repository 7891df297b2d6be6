package runner

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/ratecheck/internal/source"
)

// Observation is what the transport reports for one completed attempt.
type Observation struct {
	StatusCode int
	Header     http.Header
	Latency    time.Duration
}

// Transport sends a single request. Implementations return an error only when
// no response could be obtained; HTTP error statuses are observations.
type Transport interface {
	Send(ctx context.Context, d source.Descriptor) (Observation, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, d source.Descriptor) (Observation, error)

func (f TransportFunc) Send(ctx context.Context, d source.Descriptor) (Observation, error) {
	return f(ctx, d)
}

// Observer receives every completion counted by a run. seq is the value of the
// completed counter after this attempt. Calls are serialized, arrive in seq
// order and stop once the run is decided, so the last seq observed equals
// Result.Completed. Observe must not block.
type Observer interface {
	Observe(seq int64, obs Observation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(seq int64, obs Observation)

func (f ObserverFunc) Observe(seq int64, obs Observation) { f(seq, obs) }

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// Options configure the Runner.
type Options struct {
	Concurrency      int           // max attempts in flight
	MaxRequests      int           // completions after which the run is exhausted
	TimeBudget       time.Duration // elapsed time after which the run is exhausted
	RatePerSecond    int           // optional pacing (0 means unlimited)
	ArrivalModel     ArrivalModel  // pacing model when RatePerSecond > 0
	RandomSeed       int64         // seed for poisson sampling
	PoissonSampler   func() float64
	GracefulShutdown time.Duration // how long Run waits for stragglers after the decision
	Transport        Transport     // request executor (required)
	Observer         Observer      // optional per-completion callback
	OnStop           func(Result)  // optional, called once with the decision
	LimiterFactory   func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.MaxRequests <= 0 {
		o.MaxRequests = 1
	}
	if o.TimeBudget < 0 {
		o.TimeBudget = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.GracefulShutdown < 0 {
		o.GracefulShutdown = 0
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelUniform
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of one keeps the probe from front-loading a second's worth of requests.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
