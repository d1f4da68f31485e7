// Package embedding provides text encoders that yield token-level and pooled sentence embeddings.
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/mindcast/internal/models"
)

// Encoder turns text into embeddings. Implementations must be deterministic for a fixed
// model so that persisted reference embeddings stay valid.
type Encoder interface {
	// EncodeBatch encodes texts into token matrices, validity masks and pooled vectors.
	EncodeBatch(ctx context.Context, texts []string) (*Batch, error)
	// EncodeSentence returns the pooled embedding of a single text.
	EncodeSentence(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}

// Encoding is the embedding of one text: one vector per token position, the mask
// telling which positions are real tokens, and the mean of the valid token vectors.
type Encoding struct {
	Tokens   [][]float32
	Mask     []bool
	Sentence []float32
}

// Batch holds the encodings of several texts. Token matrices may be padded to a common
// length; padded positions have Mask false.
type Batch struct {
	Tokens    [][][]float32
	Mask      [][]bool
	Sentences [][]float32
}

// Len returns the number of texts in the batch.
func (b *Batch) Len() int { return len(b.Sentences) }

// Append adds one encoding to the batch.
func (b *Batch) Append(e Encoding) {
	b.Tokens = append(b.Tokens, e.Tokens)
	b.Mask = append(b.Mask, e.Mask)
	b.Sentences = append(b.Sentences, e.Sentence)
}

// Validate checks that every vector has dim components and every mask matches its
// token matrix. Violations are models.ErrShapeMismatch.
func (b *Batch) Validate(dim int) error {
	if len(b.Tokens) != len(b.Sentences) || len(b.Mask) != len(b.Sentences) {
		return fmt.Errorf("%w: batch has %d token matrices, %d masks, %d sentence vectors",
			models.ErrShapeMismatch, len(b.Tokens), len(b.Mask), len(b.Sentences))
	}
	for i := range b.Sentences {
		if len(b.Sentences[i]) != dim {
			return fmt.Errorf("%w: title %d sentence dimension %d, index expects %d",
				models.ErrShapeMismatch, i, len(b.Sentences[i]), dim)
		}
		if len(b.Mask[i]) != len(b.Tokens[i]) {
			return fmt.Errorf("%w: title %d has %d tokens but mask length %d",
				models.ErrShapeMismatch, i, len(b.Tokens[i]), len(b.Mask[i]))
		}
		for j, tok := range b.Tokens[i] {
			if len(tok) != dim {
				return fmt.Errorf("%w: title %d token %d dimension %d, index expects %d",
					models.ErrShapeMismatch, i, j, len(tok), dim)
			}
		}
	}
	return nil
}

// MeanPool averages the token vectors whose mask entry is true. It returns a zero
// vector of dim components when no token is valid.
func MeanPool(tokens [][]float32, mask []bool, dim int) []float32 {
	sum := make([]float64, dim)
	n := 0
	for i, tok := range tokens {
		if i < len(mask) && !mask[i] {
			continue
		}
		for j := 0; j < dim && j < len(tok); j++ {
			sum[j] += float64(tok[j])
		}
		n++
	}
	out := make([]float32, dim)
	if n == 0 {
		return out
	}
	for j := range sum {
		out[j] = float32(sum[j] / float64(n))
	}
	return out
}

// PadBatch pads each encoding's token matrix to the longest one with zero vectors and
// false mask entries, mirroring a padded tokenizer batch.
func PadBatch(encodings []Encoding, dim int) *Batch {
	maxLen := 0
	for _, e := range encodings {
		if len(e.Tokens) > maxLen {
			maxLen = len(e.Tokens)
		}
	}
	b := &Batch{}
	for _, e := range encodings {
		tokens := make([][]float32, maxLen)
		mask := make([]bool, maxLen)
		copy(tokens, e.Tokens)
		copy(mask, e.Mask)
		for i := len(e.Tokens); i < maxLen; i++ {
			tokens[i] = make([]float32, dim)
		}
		b.Append(Encoding{Tokens: tokens, Mask: mask, Sentence: e.Sentence})
	}
	return b
}
