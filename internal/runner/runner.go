package runner

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/torosent/ratecheck/internal/source"
)

// Runner dispatches a request source with bounded concurrency and decides
// once, under concurrent completions, why the run ends.
type Runner struct {
	opt     Options
	arrival arrivalController
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, arrival: newArrivalController(opt)}
}

// Run drains src until a stop decision is made and returns the values captured
// at that moment. Attempts still in flight are not cancelled by the decision;
// their completions are ignored.
//
// A transport failure ends the run with ReasonTransportError and a
// *TransportError. If ctx ends first, Run returns ctx.Err().
func (r *Runner) Run(ctx context.Context, src *source.Source) (Result, error) {
	if r.opt.Transport == nil {
		return Result{}, errors.New("runner: transport is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	run := &runState{
		start:    time.Now(),
		budget:   r.opt.TimeBudget,
		max:      int64(r.opt.MaxRequests),
		observer: r.opt.Observer,
		done:     make(chan struct{}),
	}

	// Pacing waits are abandoned as soon as the run is decided.
	pacingCtx, stopPacing := context.WithCancel(ctx)
	defer stopPacing()
	go func() {
		select {
		case <-run.done:
			stopPacing()
		case <-pacingCtx.Done():
		}
	}()

	permits := make(chan struct{}, r.opt.Concurrency)
	var inflight sync.WaitGroup

dispatch:
	for {
		select {
		case permits <- struct{}{}:
		case <-run.done:
			break dispatch
		case <-ctx.Done():
			break dispatch
		}
		if run.stopped() || ctx.Err() != nil {
			<-permits
			break dispatch
		}
		if r.arrival != nil {
			if err := r.arrival.Wait(pacingCtx); err != nil {
				<-permits
				break dispatch
			}
		}
		d, ok := src.Next()
		if !ok {
			<-permits
			break dispatch
		}

		inflight.Add(1)
		go func(d source.Descriptor) {
			defer inflight.Done()
			// Release the slot only after the completion is evaluated so a
			// decision is visible before the next submission.
			defer func() { <-permits }()

			obs, err := r.opt.Transport.Send(ctx, d)
			if err != nil && ctx.Err() != nil {
				// Cancelled by the caller, not a transport failure.
				return
			}
			run.complete(d, obs, err)
		}(d)
	}

	drained := make(chan struct{})
	go func() {
		inflight.Wait()
		close(drained)
	}()

	if !run.stopped() {
		select {
		case <-run.done:
		case <-drained:
		case <-ctx.Done():
		}
	}

	if err := ctx.Err(); err != nil && !run.stopped() {
		if interrupted, won := run.decideNow(ReasonNone); won {
			return interrupted, err
		}
	}
	// The source ran dry below MaxRequests.
	run.decideNow(ReasonCountExhausted)

	if r.opt.GracefulShutdown > 0 {
		timer := time.NewTimer(r.opt.GracefulShutdown)
		select {
		case <-drained:
		case <-timer.C:
		case <-ctx.Done():
		}
		timer.Stop()
	}

	res := run.snapshot()
	if r.opt.OnStop != nil {
		r.opt.OnStop(res)
	}
	return res, res.Err
}

// runState is the shared mutable state of a single run.
type runState struct {
	start     time.Time
	budget    time.Duration
	max       int64
	observer  Observer
	completed atomic.Int64

	// mu serializes completion evaluation: every observed attempt is counted
	// in the decided Result and none is observed after it.
	mu     sync.Mutex
	once   sync.Once
	done   chan struct{}
	result Result
}

func (s *runState) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// complete evaluates one attempt. Rate limiting is checked first, then the
// time budget, then the request count.
func (s *runState) complete(d source.Descriptor, obs Observation, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped() {
		return
	}
	if err != nil {
		s.decide(Result{
			Reason:    ReasonTransportError,
			Elapsed:   time.Since(s.start),
			Completed: s.completed.Load(),
			Err:       &TransportError{Request: d, Err: err},
		})
		return
	}

	n := s.completed.Add(1)
	elapsed := time.Since(s.start)
	if s.observer != nil {
		s.observer.Observe(n, obs)
	}

	var reason StopReason
	switch {
	case obs.StatusCode == http.StatusTooManyRequests:
		reason = ReasonRateLimited
	case elapsed > s.budget:
		reason = ReasonTimeExpired
	case n >= s.max:
		reason = ReasonCountExhausted
	default:
		return
	}

	s.decide(Result{
		Reason:     reason,
		Elapsed:    elapsed,
		Completed:  n,
		StatusCode: obs.StatusCode,
		Header:     obs.Header.Clone(),
	})
}

// decideNow decides with the current count unless a completion already did.
func (s *runState) decideNow(reason StopReason) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := Result{
		Reason:    reason,
		Elapsed:   time.Since(s.start),
		Completed: s.completed.Load(),
	}
	return res, s.decide(res)
}

// decide records res if no decision exists yet and reports whether it won.
func (s *runState) decide(res Result) bool {
	won := false
	s.once.Do(func() {
		s.result = res
		won = true
		close(s.done)
	})
	return won
}

// snapshot must only be called after done is closed.
func (s *runState) snapshot() Result {
	<-s.done
	return s.result
}
