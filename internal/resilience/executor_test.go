package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/hyperjump/mindcast/internal/models"
)

func fastPolicy(breaker bool) Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
		Breaker:        breaker,
		TripAfter:      2,
		TripRatio:      0.5,
		Cooldown:       50 * time.Millisecond,
	}
}

func TestDo_RetriesTransientFailure(t *testing.T) {
	exec := NewExecutor(fastPolicy(false), nil)

	attempts := 0
	err := exec.Do(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("session busy")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_DoesNotRetryPermanentFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"shape mismatch", fmt.Errorf("encode: %w", models.ErrShapeMismatch)},
		{"deadline", context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewExecutor(fastPolicy(false), nil)
			attempts := 0
			err := exec.Do(context.Background(), "op", func(context.Context) error {
				attempts++
				return tt.err
			})
			if !errors.Is(err, tt.err) {
				t.Fatalf("got %v, want %v", err, tt.err)
			}
			if attempts != 1 {
				t.Fatalf("expected 1 attempt, got %d", attempts)
			}
		})
	}
}

func TestDo_OpensBreakerAfterFailures(t *testing.T) {
	p := fastPolicy(true)
	p.MaxAttempts = 1
	exec := NewExecutor(p, nil)

	errDown := errors.New("model offline")
	for i := 0; i < 2; i++ {
		// Operations share one breaker.
		op := []string{"encoder.batch", "encoder.sentence"}[i]
		if err := exec.Do(context.Background(), op, func(context.Context) error { return errDown }); !errors.Is(err, errDown) {
			t.Fatalf("call %d: expected model error, got %v", i, err)
		}
	}

	err := exec.Do(context.Background(), "encoder.batch", func(context.Context) error {
		t.Fatal("breaker should be open and must not call the encoder")
		return nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open breaker, got %v", err)
	}
}

func TestDo_ShapeErrorsDoNotTripBreaker(t *testing.T) {
	p := fastPolicy(true)
	p.MaxAttempts = 1
	exec := NewExecutor(p, nil)

	for i := 0; i < 5; i++ {
		_ = exec.Do(context.Background(), "op", func(context.Context) error { return models.ErrShapeMismatch })
	}
	called := false
	if err := exec.Do(context.Background(), "op", func(context.Context) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("breaker should stay closed, got %v", err)
	}
	if !called {
		t.Fatal("encoder was not called")
	}
}

func TestDo_StopsOnCancelledContext(t *testing.T) {
	exec := NewExecutor(fastPolicy(false), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := exec.Do(ctx, "op", func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatal("operation must not run after cancellation")
	}
}

func TestPolicy_WithDefaults(t *testing.T) {
	got := Policy{InitialBackoff: time.Second, MaxBackoff: time.Millisecond}.withDefaults()
	def := DefaultPolicy()
	if got.MaxAttempts != def.MaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", got.MaxAttempts, def.MaxAttempts)
	}
	if got.MaxBackoff != time.Second {
		t.Errorf("MaxBackoff = %v, want it raised to the initial backoff", got.MaxBackoff)
	}
	if got.TripRatio != def.TripRatio || got.Breaker {
		t.Errorf("TripRatio = %v Breaker = %v", got.TripRatio, got.Breaker)
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy()
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := p.delay(i + 1); got != w {
			t.Errorf("delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}
