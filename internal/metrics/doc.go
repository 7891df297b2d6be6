// Package metrics aggregates per-attempt measurements for a rate limit probe.
//
// The [Collector] records the latency and status code of every attempt that
// completes, plus a label for each transport failure:
//
//	collector := metrics.NewCollector()
//	collector.RecordAttempt(latency, resp.StatusCode, nil)
//	stats := collector.Stats(elapsed)
//
// Latency percentiles (P50, P90, P99) come from an HDR histogram. Status codes
// are reported as [StatusBucket] rows sorted by frequency. Collector is safe for
// concurrent use.
package metrics
