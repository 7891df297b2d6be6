package runner

import (
	"context"

	"github.com/torosent/ratecheck/internal/source"
)

// FailureLogger logs attempts that produced no response.
type FailureLogger interface {
	LogFailure(d source.Descriptor, err error)
}

// loggingTransport wraps a Transport with failure logging.
type loggingTransport struct {
	inner  Transport
	logger FailureLogger
}

// WithLogging wraps a Transport to log failures.
func WithLogging(t Transport, logger FailureLogger) Transport {
	if logger == nil {
		return t
	}
	return &loggingTransport{
		inner:  t,
		logger: logger,
	}
}

func (l *loggingTransport) Send(ctx context.Context, d source.Descriptor) (Observation, error) {
	obs, err := l.inner.Send(ctx, d)
	if err != nil && l.logger != nil {
		l.logger.LogFailure(d, err)
	}
	return obs, err
}
