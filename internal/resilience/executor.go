package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/mindcast/internal/models"
	"github.com/hyperjump/mindcast/pkg/utils"
)

// Executor retries encoder calls. All operations share one circuit breaker.
type Executor struct {
	policy  Policy
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewExecutor returns an executor for p. Zero fields take their defaults.
func NewExecutor(p Policy, logger *zap.Logger) *Executor {
	e := &Executor{policy: p.withDefaults(), logger: utils.OrNop(logger)}
	if e.policy.Breaker {
		e.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "encoder",
			Timeout:     e.policy.Cooldown,
			ReadyToTrip: e.shouldTrip,
			IsSuccessful: func(err error) bool {
				return err == nil || !transient(err)
			},
			OnStateChange: func(_ string, from, to gobreaker.State) {
				e.logger.Warn("Encoder breaker state change",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}
	return e
}

// Do runs fn, retrying transient failures with backoff. While the breaker is open it
// fails fast with an error IsCircuitOpen recognizes.
func (e *Executor) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	if e.breaker == nil {
		return e.retry(ctx, op, fn)
	}
	_, err := e.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, e.retry(ctx, op, fn)
	})
	return err
}

func (e *Executor) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil || !transient(err) || attempt >= e.policy.MaxAttempts {
			return err
		}

		wait := e.policy.delay(attempt)
		e.logger.Warn("Retrying encoder call",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func (e *Executor) shouldTrip(c gobreaker.Counts) bool {
	if c.Requests < e.policy.TripAfter {
		return false
	}
	return float64(c.TotalFailures)/float64(c.Requests) >= e.policy.TripRatio
}

// transient reports whether err is worth retrying. Caller cancellation and shape
// mismatches are not, and they do not count against the breaker either.
func transient(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, models.ErrShapeMismatch):
		return false
	default:
		return true
	}
}

// IsCircuitOpen reports whether err came from an open or saturated breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
