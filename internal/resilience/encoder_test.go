package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/mindcast/internal/embedding"
	"github.com/hyperjump/mindcast/internal/models"
)

type flakyEncoder struct {
	*embedding.MockEncoder
	failures int
	calls    int
	err      error
}

func (e *flakyEncoder) EncodeSentence(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.calls <= e.failures {
		return nil, e.err
	}
	return e.MockEncoder.EncodeSentence(ctx, text)
}

func TestEncoderRetriesTransientFailure(t *testing.T) {
	inner := &flakyEncoder{MockEncoder: embedding.NewMockEncoder(8), failures: 2, err: errors.New("session busy")}
	enc := WrapEncoder(inner, NewExecutor(fastPolicy(false), nil))

	vec, err := enc.EncodeSentence(context.Background(), "투신 사고")
	if err != nil {
		t.Fatalf("EncodeSentence: %v", err)
	}
	if len(vec) != 8 {
		t.Errorf("len(vec) = %d, want 8", len(vec))
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
	if enc.Dimensions() != 8 {
		t.Errorf("Dimensions() = %d, want 8", enc.Dimensions())
	}
}

func TestEncoderSurfacesUnavailable(t *testing.T) {
	inner := &flakyEncoder{MockEncoder: embedding.NewMockEncoder(8), failures: 10, err: errors.New("model offline")}
	enc := WrapEncoder(inner, NewExecutor(fastPolicy(false), nil))

	_, err := enc.EncodeSentence(context.Background(), "x")
	if !errors.Is(err, models.ErrEncoderUnavailable) {
		t.Fatalf("expected ErrEncoderUnavailable, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestEncoderDoesNotRetryShapeMismatch(t *testing.T) {
	inner := &flakyEncoder{MockEncoder: embedding.NewMockEncoder(8), failures: 10, err: models.ErrShapeMismatch}
	enc := WrapEncoder(inner, NewExecutor(fastPolicy(false), nil))

	_, err := enc.EncodeSentence(context.Background(), "x")
	if !errors.Is(err, models.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if errors.Is(err, models.ErrEncoderUnavailable) {
		t.Fatalf("shape errors must not be reported as unavailable: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestEncoderBatchPassesThrough(t *testing.T) {
	enc := WrapEncoder(embedding.NewMockEncoder(8), NewExecutor(fastPolicy(true), nil))
	batch, err := enc.EncodeBatch(context.Background(), []string{"a b", "c"})
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	if batch.Len() != 2 {
		t.Errorf("batch.Len() = %d, want 2", batch.Len())
	}
}
