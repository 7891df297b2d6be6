package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/torosent/ratecheck/internal/config"
	"github.com/torosent/ratecheck/internal/httpclient"
	"github.com/torosent/ratecheck/internal/logging"
	"github.com/torosent/ratecheck/internal/metrics"
	"github.com/torosent/ratecheck/internal/output"
	"github.com/torosent/ratecheck/internal/runner"
	"github.com/torosent/ratecheck/internal/source"
	"github.com/torosent/ratecheck/internal/tracing"
)

const tracingShutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := ulid.Make().String()
	logger, closeLog, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Quiet:   cfg.Quiet,
		Console: stderr,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	logger = logger.With(zap.String("run_id", runID))

	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	provider, err := tracing.Init(ctx, cfg.Tracing, tracing.Run{
		ID:     runID,
		Target: cfg.TargetURL,
		Method: cfg.Method,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	builder, err := httpclient.NewRequestBuilder(cfg.Headers)
	if err != nil {
		return err
	}
	if provider.ShouldPropagate() {
		builder = builder.WithInjector(tracing.InjectHTTPHeaders)
	}

	client := httpclient.NewClient(cfg.Timeout, cfg.Concurrency)
	defer client.CloseIdleConnections()
	collector := metrics.NewCollector()

	var transport runner.Transport = &httpRequester{
		client:  client,
		builder: builder,
		tracer:  provider.Tracer(),
	}
	if cfg.LogErrors {
		transport = runner.WithLogging(transport, &zapFailureLogger{logger: logger})
	}

	printer := output.NewStatusPrinter(stdout, cfg.Quiet || cfg.Format != config.FormatText)
	observer := runner.ObserverFunc(func(seq int64, obs runner.Observation) {
		collector.RecordAttempt(obs.Latency, obs.StatusCode, nil)
		printer.Observe(seq, obs)
	})

	r := runner.New(runner.Options{
		Concurrency:      cfg.Concurrency,
		MaxRequests:      cfg.MaxRequests,
		TimeBudget:       cfg.Duration,
		RatePerSecond:    cfg.Rate,
		ArrivalModel:     toRunnerArrivalModel(cfg.Arrival.Model),
		GracefulShutdown: cfg.GracefulShutdown,
		Transport:        transport,
		Observer:         observer,
		OnStop: func(res runner.Result) {
			var terr *runner.TransportError
			if errors.As(res.Err, &terr) {
				collector.RecordAttempt(0, 0, terr.Err)
			}
			logger.Debug("stop decided",
				zap.Stringer("reason", res.Reason),
				zap.Int64("completed", res.Completed),
				zap.Duration("elapsed", res.Elapsed),
			)
		},
	})

	desc := source.Descriptor{Method: cfg.Method, URL: cfg.TargetURL}
	logger.Info("probe started",
		zap.String("target", desc.URL),
		zap.String("method", desc.Method),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Int("max_requests", cfg.MaxRequests),
		zap.Duration("duration", cfg.Duration),
	)

	if err := ctx.Err(); err != nil {
		return err
	}
	started := time.Now()
	src := source.New(desc, cfg.MaxRequests)
	res, runErr := r.Run(ctx, src)

	summary := output.NewSummary(output.RunInfo{
		RunID:       runID,
		StartedAt:   started,
		Target:      desc.URL,
		Method:      strings.ToUpper(desc.Method),
		Concurrency: cfg.Concurrency,
		MaxRequests: cfg.MaxRequests,
		TimeBudget:  cfg.Duration,
	}, res, collector.Stats(res.Elapsed))

	if err := writeReport(stdout, cfg.Format, summary); err != nil {
		return err
	}

	if cfg.HistoryFile != "" {
		if err := output.AppendHistory(cfg.HistoryFile, summary); err != nil {
			return fmt.Errorf("history: %w", err)
		}
	}
	if cfg.PromFile != "" {
		if err := output.WritePromFile(cfg.PromFile, summary); err != nil {
			return fmt.Errorf("prom file: %w", err)
		}
	}

	logger.Info("probe finished",
		zap.Stringer("reason", res.Reason),
		zap.Int64("completed", res.Completed),
		zap.Int("dispatched", src.Emitted()),
		zap.Int64("elapsed_ms", res.Elapsed.Milliseconds()),
	)

	if runErr != nil {
		if res.Reason == runner.ReasonNone {
			return fmt.Errorf("interrupted: %w", runErr)
		}
		return runErr
	}
	return nil
}

func writeReport(w io.Writer, format config.OutputFormat, summary output.Summary) error {
	switch format {
	case config.FormatJSON:
		return output.PrintJSONReport(w, summary)
	case config.FormatYAML:
		return output.PrintYAMLReport(w, summary)
	default:
		output.PrintReport(w, summary)
		return nil
	}
}

func toRunnerArrivalModel(model config.ArrivalModel) runner.ArrivalModel {
	switch strings.ToLower(string(model)) {
	case string(config.ArrivalModelPoisson):
		return runner.ArrivalModelPoisson
	default:
		return runner.ArrivalModelUniform
	}
}
