package resilience

import (
	"context"
	"errors"

	"github.com/hyperjump/mindcast/internal/embedding"
	"github.com/hyperjump/mindcast/internal/models"
)

// Encoder runs another encoder's calls through an Executor. Failures, including an open
// breaker, surface as models.ErrEncoderUnavailable.
type Encoder struct {
	next embedding.Encoder
	exec *Executor
}

// WrapEncoder decorates enc with exec.
func WrapEncoder(enc embedding.Encoder, exec *Executor) *Encoder {
	return &Encoder{next: enc, exec: exec}
}

// EncodeBatch encodes texts with retry.
func (e *Encoder) EncodeBatch(ctx context.Context, texts []string) (*embedding.Batch, error) {
	var out *embedding.Batch
	err := e.exec.Do(ctx, "encoder.batch", func(ctx context.Context) error {
		b, err := e.next.EncodeBatch(ctx, texts)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, unavailable("encode batch", err)
	}
	return out, nil
}

// EncodeSentence encodes one text with retry.
func (e *Encoder) EncodeSentence(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := e.exec.Do(ctx, "encoder.sentence", func(ctx context.Context) error {
		v, err := e.next.EncodeSentence(ctx, text)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, unavailable("encode sentence", err)
	}
	return out, nil
}

// Dimensions returns the wrapped encoder's dimension.
func (e *Encoder) Dimensions() int { return e.next.Dimensions() }

// Close closes the wrapped encoder.
func (e *Encoder) Close() error { return e.next.Close() }

func unavailable(op string, err error) error {
	if errors.Is(err, models.ErrEncoderUnavailable) || errors.Is(err, models.ErrShapeMismatch) {
		return err
	}
	return models.WrapError(models.ErrEncoderUnavailable, op, err)
}
