package embedding

import (
	"context"
	"math"
)

// MockEncoder is a deterministic encoder for tests. Each whitespace-separated word maps to
// a fixed vector derived from its hash, so the same text always gets the same embedding
// and titles sharing words with a reference sentence score higher against it.
type MockEncoder struct {
	dimensions int
}

// NewMockEncoder returns an encoder that produces deterministic embeddings of the given dimensions.
func NewMockEncoder(dimensions int) *MockEncoder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEncoder{dimensions: dimensions}
}

// Encode returns the encoding of a single text without padding.
func (e *MockEncoder) Encode(text string) Encoding {
	words := SplitWords(text)
	tokens := make([][]float32, len(words))
	mask := make([]bool, len(words))
	for i, w := range words {
		tokens[i] = e.wordVector(w)
		mask[i] = true
	}
	return Encoding{Tokens: tokens, Mask: mask, Sentence: MeanPool(tokens, mask, e.dimensions)}
}

func (e *MockEncoder) wordVector(word string) []float32 {
	h := HashString(word)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range emb {
			emb[i] *= float32(norm)
		}
	}
	return emb
}

// EncodeBatch encodes each text and pads the batch to its longest title.
func (e *MockEncoder) EncodeBatch(ctx context.Context, texts []string) (*Batch, error) {
	encodings := make([]Encoding, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		encodings[i] = e.Encode(text)
	}
	return PadBatch(encodings, e.dimensions), nil
}

// EncodeSentence returns the pooled embedding of text.
func (e *MockEncoder) EncodeSentence(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.Encode(text).Sentence, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEncoder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEncoder.
func (e *MockEncoder) Close() error {
	return nil
}
