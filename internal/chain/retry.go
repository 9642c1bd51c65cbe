package chain

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"liquidityCore/internal/fixedpoint"
)

// RetryPolicy bounds how often a failed RPC read is repeated. The delay
// doubles after every attempt.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func (p RetryPolicy) do(ctx context.Context, logger *zap.Logger, op string, fn func(context.Context) error) error {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := p.Backoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || !retryable(err) {
			return err
		}
		logger.Warn("rpc read failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

// retryable rejects failures that repeat deterministically.
func retryable(err error) bool {
	return !errors.Is(err, fixedpoint.ErrOverflow) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
