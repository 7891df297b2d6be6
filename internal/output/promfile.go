package output

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const promNamespace = "ratecheck"

// WritePromFile writes the summary in Prometheus text format for the
// node_exporter textfile collector. The file is replaced atomically.
func WritePromFile(path string, s Summary) error {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"target": s.Target, "method": s.Method}

	gauge := func(name, help string, value float64) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   promNamespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
		g.Set(value)
		reg.MustRegister(g)
		return g
	}

	gauge("requests_completed", "Attempts evaluated before the stop decision.", float64(s.Requests))
	gauge("elapsed_seconds", "Time from the first submission to the stop decision.", float64(s.ElapsedMs)/1000)
	gauge("concurrency", "Maximum number of attempts in flight.", float64(s.Concurrency))
	gauge("last_run_timestamp_seconds", "Start time of the probe.", float64(s.StartedAt.Unix()))
	gauge("rate_limited", "1 if the probe ended on a 429 response.", boolToFloat(s.Reason == "rate_limited"))

	reason := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   promNamespace,
		Name:        "stop_reason",
		Help:        "Why the probe stopped; the active reason is set to 1.",
		ConstLabels: labels,
	}, []string{"reason"})
	for _, r := range []string{"rate_limited", "time_expired", "count_exhausted", "transport_error"} {
		reason.WithLabelValues(r).Set(boolToFloat(s.Reason == r))
	}
	reg.MustRegister(reason)

	latency := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   promNamespace,
		Name:        "latency_seconds",
		Help:        "Attempt latency percentiles.",
		ConstLabels: labels,
	}, []string{"percentile"})
	latency.WithLabelValues("50").Set(s.Stats.P50LatencyMs / 1000)
	latency.WithLabelValues("90").Set(s.Stats.P90LatencyMs / 1000)
	latency.WithLabelValues("99").Set(s.Stats.P99LatencyMs / 1000)
	reg.MustRegister(latency)

	responses := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   promNamespace,
		Name:        "responses",
		Help:        "Responses received by status code.",
		ConstLabels: labels,
	}, []string{"code"})
	for _, row := range s.Stats.StatusCodes {
		responses.WithLabelValues(strconv.Itoa(row.Code)).Set(float64(row.Count))
	}
	reg.MustRegister(responses)

	return prometheus.WriteToTextfile(strings.TrimSpace(path), reg)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
