package runner

import (
	"context"
	"testing"
	"time"
)

func TestPoissonArrivalNextDelayUsesSampler(t *testing.T) {
	ctrl := &poissonArrival{rate: 200, sample: func() float64 { return 1 }}
	delay := ctrl.nextDelay()
	expected := time.Second / 200
	if delay != expected {
		t.Fatalf("expected delay %s, got %s", expected, delay)
	}
}

func TestPoissonArrivalWaitCancelledContext(t *testing.T) {
	ctrl := &poissonArrival{rate: 0.000001, sample: func() float64 { return 1 }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ctrl.Wait(ctx); err == nil {
		t.Fatalf("expected context error when cancelled")
	}
}

func TestNewArrivalControllerDisabledWithoutRate(t *testing.T) {
	opts := Options{}
	opts.normalize()
	if ctrl := newArrivalController(opts); ctrl != nil {
		t.Fatalf("expected no arrival controller, got %T", ctrl)
	}
}

func TestNewArrivalControllerSelectsModel(t *testing.T) {
	opts := Options{RatePerSecond: 10}
	opts.normalize()
	if _, ok := newArrivalController(opts).(*uniformArrival); !ok {
		t.Fatalf("expected uniform arrival by default")
	}

	opts.ArrivalModel = ArrivalModelPoisson
	if _, ok := newArrivalController(opts).(*poissonArrival); !ok {
		t.Fatalf("expected poisson arrival")
	}
}
