package output

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/torosent/ratecheck/internal/metrics"
	"github.com/torosent/ratecheck/internal/runner"
)

// PrintReport outputs the stop reason in the classic form followed by a
// table of run statistics.
func PrintReport(w io.Writer, s Summary) {
	switch s.Reason {
	case runner.ReasonRateLimited.String():
		fmt.Fprintf(w, "Response %d\n", http.StatusTooManyRequests)
		writeHeaders(w, s.Headers)
	case runner.ReasonTimeExpired.String(), runner.ReasonCountExhausted.String():
		fmt.Fprintln(w, "Time or request limit reached.")
	case runner.ReasonTransportError.String():
		fmt.Fprintf(w, "Request failed: %s\n", s.Error)
	default:
		fmt.Fprintln(w, "Interrupted.")
	}
	fmt.Fprintf(w, "Took %dms\n", s.ElapsedMs)
	fmt.Fprintf(w, "Requests made = %d.\n", s.Requests)

	fmt.Fprintln(w)
	fmt.Fprintln(w, renderStatsTable(s))
	if len(s.Stats.StatusCodes) > 0 {
		fmt.Fprintln(w, renderStatusTable(s.Stats.StatusCodes))
	}
	if len(s.Stats.Errors) > 0 {
		fmt.Fprintln(w, renderErrorTable(s.Stats.Errors))
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, s Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

func writeHeaders(w io.Writer, headers map[string][]string) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\n", k, strings.Join(headers[k], ", "))
	}
}

func renderStatsTable(s Summary) string {
	stats := s.Stats
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Run " + s.RunID)
	t.AppendRows([]table.Row{
		{"Target", s.Method + " " + s.Target},
		{"Stop reason", s.Reason},
		{"Completed", s.Requests},
		{"Responses", stats.Responses},
		{"Rate limited", stats.RateLimited},
		{"Failures", stats.Failures},
		{"Requests/sec", fmt.Sprintf("%.2f", stats.RequestsPerSec)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Latency min", formatMs(stats.MinLatencyMs)},
		{"Latency mean", formatMs(stats.MeanLatencyMs)},
		{"Latency p50", formatMs(stats.P50LatencyMs)},
		{"Latency p90", formatMs(stats.P90LatencyMs)},
		{"Latency p99", formatMs(stats.P99LatencyMs)},
		{"Latency max", formatMs(stats.MaxLatencyMs)},
	})
	return t.Render()
}

func renderStatusTable(rows []metrics.StatusBucket) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Status", "Count"})
	for _, row := range rows {
		t.AppendRow(table.Row{StatusLine(row.Code), row.Count})
	}
	return t.Render()
}

func renderErrorTable(errs map[string]int) string {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if errs[names[i]] == errs[names[j]] {
			return names[i] < names[j]
		}
		return errs[names[i]] > errs[names[j]]
	})

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Error", "Count"})
	for _, name := range names {
		t.AppendRow(table.Row{name, errs[name]})
	}
	return t.Render()
}

func formatMs(ms float64) string {
	return fmt.Sprintf("%.2fms", ms)
}
