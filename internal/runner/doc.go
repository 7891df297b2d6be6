// Package runner is the dispatch engine of ratecheck.
//
// A [Runner] drains a request source through a [Transport] with at most
// Options.Concurrency attempts in flight. Admission is a sliding window: a new
// descriptor is submitted as soon as any in-flight attempt has been evaluated.
//
// Every completion is evaluated in the order it arrives. The first completion
// that meets a stop condition decides the run:
//   - HTTP 429 ends it as [ReasonRateLimited]
//   - elapsed time above Options.TimeBudget ends it as [ReasonTimeExpired]
//   - Options.MaxRequests completions end it as [ReasonCountExhausted]
//   - a transport failure ends it as [ReasonTransportError]
//
// Later detections are ignored. The [Result] carries elapsed time and the
// completed count as they were when the decision was taken; attempts still in
// flight are allowed to finish but never change it.
//
// # Basic Usage
//
//	src := source.New(source.Descriptor{Method: "GET", URL: target}, 1000)
//	r := runner.New(runner.Options{
//		Concurrency: 15,
//		MaxRequests: 1000,
//		TimeBudget:  30 * time.Second,
//		Transport:   transport,
//	})
//	res, err := r.Run(ctx, src)
//
// # Pacing
//
// Options.RatePerSecond optionally spaces submissions, either uniformly
// ([ArrivalModelUniform]) or with exponential gaps ([ArrivalModelPoisson]).
//
// # Middleware
//
// [WithLogging] reports transport failures before they end the run.
package runner
