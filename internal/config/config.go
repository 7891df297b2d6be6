package config

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultMaxRequests = 1000
	DefaultConcurrency = 15
	DefaultTimeout     = 30 * time.Second
)

type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

type Config struct {
	TargetURL        string            `mapstructure:"target"`
	Method           string            `mapstructure:"method"`
	Headers          map[string]string `mapstructure:"headers"`
	Duration         time.Duration     `mapstructure:"duration"`
	DurationSet      bool              `mapstructure:"-"`
	MaxRequests      int               `mapstructure:"max_requests"`
	Concurrency      int               `mapstructure:"concurrency"`
	Quiet            bool              `mapstructure:"quiet"`
	Timeout          time.Duration     `mapstructure:"timeout"`
	Rate             int               `mapstructure:"rate"`
	Arrival          ArrivalConfig     `mapstructure:"arrival"`
	GracefulShutdown time.Duration     `mapstructure:"graceful_shutdown"`
	Format           OutputFormat      `mapstructure:"format"`
	HistoryFile      string            `mapstructure:"history_file"`
	PromFile         string            `mapstructure:"prom_file"`
	LogLevel         string            `mapstructure:"log_level"`
	LogFile          string            `mapstructure:"log_file"`
	LogErrors        bool              `mapstructure:"log_errors"`
	Tracing          TracingConfig     `mapstructure:"tracing"`
	ConfigFile       string            `mapstructure:"-"`
}

type ArrivalConfig struct {
	Model ArrivalModel `mapstructure:"model"`
}

// TracingConfig configures OpenTelemetry export of per-attempt spans.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`     // OTLP collector address (host:port)
	Protocol    string  `mapstructure:"protocol"`     // "grpc" (default) or "http"
	ServiceName string  `mapstructure:"service_name"` // defaults to OTEL_SERVICE_NAME or "ratecheck"
	SampleRate  float64 `mapstructure:"sample_rate"`  // 0.0 - 1.0
	Insecure    bool    `mapstructure:"insecure"`     // plaintext connection to the collector
	NoPropagate bool    `mapstructure:"no_propagate"` // skip W3C header injection
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether trace context headers are injected into probe requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Enabled() && !t.NoPropagate
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	target := strings.TrimSpace(c.TargetURL)
	if target == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	} else if u, err := url.Parse(target); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		issues = append(issues, fmt.Sprintf("target %q must be an absolute http or https URL", target))
	}

	switch strings.ToUpper(strings.TrimSpace(c.Method)) {
	case http.MethodGet, http.MethodPost:
	default:
		issues = append(issues, fmt.Sprintf("method must be GET or POST, got %q", c.Method))
	}

	if !c.DurationSet {
		issues = append(issues, "duration is required (second argument, --duration, config file or RATECHECK_DURATION)")
	} else if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.MaxRequests < 1 {
		issues = append(issues, "max-requests must be >= 1")
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.GracefulShutdown < 0 {
		issues = append(issues, "graceful-shutdown must be >= 0")
	}

	switch c.Format {
	case "", FormatText, FormatJSON, FormatYAML:
	default:
		issues = append(issues, fmt.Sprintf("format %q is not supported (text, json or yaml)", c.Format))
	}

	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log level %q is not supported", c.LogLevel))
	}

	issues = append(issues, validateArrivalConfig(c.Arrival)...)
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// Warnings returns advisory messages about settings that are valid but risky.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Rate > 1000 {
		warnings = append(warnings, fmt.Sprintf("high rate configured (%d RPS); ensure you have authorization to probe the target", c.Rate))
	}
	if c.Concurrency > 500 {
		warnings = append(warnings, fmt.Sprintf("high concurrency configured (%d in flight); ensure you have authorization to probe the target", c.Concurrency))
	}
	if c.Concurrency > c.MaxRequests && c.MaxRequests > 0 {
		warnings = append(warnings, fmt.Sprintf("concurrency %d exceeds max-requests %d; at most %d requests will be in flight", c.Concurrency, c.MaxRequests, c.MaxRequests))
	}
	if c.Tracing.Enabled() && c.Tracing.Insecure {
		warnings = append(warnings, "tracing export uses a plaintext connection (insecure: true)")
	}
	return warnings
}

func validateArrivalConfig(arr ArrivalConfig) []string {
	model := arr.Model
	if model == "" {
		model = ArrivalModelUniform
	}
	switch model {
	case ArrivalModelUniform, ArrivalModelPoisson:
		return nil
	default:
		return []string{fmt.Sprintf("arrival model %q is not supported", model)}
	}
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
