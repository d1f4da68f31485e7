package similarity

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/mindcast/internal/embedding"
	"github.com/hyperjump/mindcast/internal/index"
	"github.com/hyperjump/mindcast/internal/models"
	"github.com/hyperjump/mindcast/internal/taxonomy"
)

func fixture(t *testing.T) (*index.Index, *taxonomy.Taxonomy) {
	t.Helper()
	tax, err := taxonomy.New("2022-06", []taxonomy.Keyword{
		{Name: "A", Subtags: []string{"a1", "a2"}},
		{Name: "B", Subtags: []string{"b1"}},
	}, taxonomy.DefaultThreshold, nil)
	require.NoError(t, err)
	ix, err := index.New("2022-06", tax.Fingerprint(index.DefaultTemplate), []index.Entry{
		{Keyword: "A", Subtag: "a1", Vector: []float32{1, 0, 0}},
		{Keyword: "A", Subtag: "a2", Vector: []float32{0, 1, 0}},
		{Keyword: "B", Subtag: "b1", Vector: []float32{0, 0, 2}},
	})
	require.NoError(t, err)
	return ix, tax
}

func TestWeights_Normalize(t *testing.T) {
	w, err := Weights{1, 1, 1, 1}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, Weights{0.25, 0.25, 0.25, 0.25}, w)

	w, err = DefaultWeights().Normalize()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w.Sum(), 1e-12)
	assert.InDelta(t, 0.5, w.TokenSubtag, 1e-12)

	_, err = Weights{}.Normalize()
	assert.Error(t, err)
	_, err = Weights{1, -1, 0, 0}.Normalize()
	assert.Error(t, err)
	_, err = Weights{math.NaN(), 1, 0, 0}.Normalize()
	assert.Error(t, err)
}

func TestScorer_FusedScores(t *testing.T) {
	ix, tax := fixture(t)
	s, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	// The padded position points at a2; masking must keep it out of the token max.
	batch := &embedding.Batch{
		Tokens:    [][][]float32{{{1, 0, 0}, {0, 1, 0}}},
		Mask:      [][]bool{{true, false}},
		Sentences: [][]float32{{1, 0, 0}},
	}
	m, err := s.Score(context.Background(), batch, ix, tax)
	require.NoError(t, err)
	require.Equal(t, 1, m.Rows())
	require.Equal(t, tax.Subtags(), m.Cols)

	inv := 1 / math.Sqrt2
	assert.InDelta(t, 0.5+0.2+0.2*inv+0.1*inv, m.Values[0][0], 1e-6)
	assert.InDelta(t, 0.3*inv, m.Values[0][1], 1e-6)
	assert.InDelta(t, 0.0, m.Values[0][2], 1e-6)

	d, ok := m.Detail(0, 1)
	require.True(t, ok)
	assert.InDelta(t, 0.0, d.TokenSubtag, 1e-6)
	assert.InDelta(t, inv, d.TokenCentroid, 1e-6)
	assert.InDelta(t, m.Values[0][1], d.Fused, 1e-12)

	_, ok = m.Detail(1, 0)
	assert.False(t, ok)
}

func TestScorer_NoValidTokens(t *testing.T) {
	ix, tax := fixture(t)
	s, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	batch := &embedding.Batch{
		Tokens:    [][][]float32{{{1, 0, 0}}},
		Mask:      [][]bool{{false}},
		Sentences: [][]float32{{0, 0, 0}},
	}
	m, err := s.Score(context.Background(), batch, ix, tax)
	require.NoError(t, err)
	d, ok := m.Detail(0, 0)
	require.True(t, ok)
	assert.Equal(t, float64(MaskedScore), d.TokenSubtag)
	assert.Equal(t, float64(MaskedScore), d.TokenCentroid)
	assert.Less(t, m.Values[0][0], -1000.0)
}

func TestScorer_ShapeMismatch(t *testing.T) {
	ix, tax := fixture(t)
	s, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	tests := []struct {
		name  string
		batch *embedding.Batch
	}{
		{
			name: "sentence dimension",
			batch: &embedding.Batch{
				Tokens:    [][][]float32{{{1, 0, 0}}},
				Mask:      [][]bool{{true}},
				Sentences: [][]float32{{1, 0}},
			},
		},
		{
			name: "token dimension",
			batch: &embedding.Batch{
				Tokens:    [][][]float32{{{1, 0, 0, 0}}},
				Mask:      [][]bool{{true}},
				Sentences: [][]float32{{1, 0, 0}},
			},
		},
		{
			name: "mask length",
			batch: &embedding.Batch{
				Tokens:    [][][]float32{{{1, 0, 0}}},
				Mask:      [][]bool{{true, true}},
				Sentences: [][]float32{{1, 0, 0}},
			},
		},
		{
			name: "ragged batch",
			batch: &embedding.Batch{
				Tokens:    [][][]float32{{{1, 0, 0}}},
				Sentences: [][]float32{{1, 0, 0}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Score(context.Background(), tt.batch, ix, tax)
			assert.ErrorIs(t, err, models.ErrShapeMismatch)
		})
	}
}

func TestScorer_MissingPair(t *testing.T) {
	ix, _ := fixture(t)
	bigger, err := taxonomy.New("2022-06", []taxonomy.Keyword{
		{Name: "A", Subtags: []string{"a1", "a2", "a3"}},
		{Name: "B", Subtags: []string{"b1"}},
	}, taxonomy.DefaultThreshold, nil)
	require.NoError(t, err)
	s, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	batch := &embedding.Batch{
		Tokens:    [][][]float32{{{1, 0, 0}}},
		Mask:      [][]bool{{true}},
		Sentences: [][]float32{{1, 0, 0}},
	}
	_, err = s.Score(context.Background(), batch, ix, bigger)
	assert.ErrorIs(t, err, models.ErrShapeMismatch)
}

func TestScorer_RowOrderIndependentOfWorkers(t *testing.T) {
	ix, tax := fixture(t)
	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	batch := &embedding.Batch{}
	for i := 0; i < 60; i++ {
		v := vecs[i%3]
		batch.Append(embedding.Encoding{Tokens: [][]float32{v}, Mask: []bool{true}, Sentence: v})
	}

	serial, err := NewScorer(DefaultWeights(), WithWorkers(1))
	require.NoError(t, err)
	parallel, err := NewScorer(DefaultWeights(), WithWorkers(8))
	require.NoError(t, err)

	want, err := serial.Score(context.Background(), batch, ix, tax)
	require.NoError(t, err)
	got, err := parallel.Score(context.Background(), batch, ix, tax)
	require.NoError(t, err)
	assert.Equal(t, want.Values, got.Values)

	for i, row := range got.Values {
		best := 0
		for j := range row {
			if row[j] > row[best] {
				best = j
			}
		}
		assert.Equal(t, i%3, best, "row %d", i)
	}
}

func TestScorer_CancelledContext(t *testing.T) {
	ix, tax := fixture(t)
	s, err := NewScorer(DefaultWeights())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := &embedding.Batch{}
	batch.Append(embedding.Encoding{Tokens: [][]float32{{1, 0, 0}}, Mask: []bool{true}, Sentence: []float32{1, 0, 0}})
	_, err = s.Score(ctx, batch, ix, tax)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewMatrix(t *testing.T) {
	_, tax := fixture(t)
	_, err := NewMatrix(tax.Subtags(), [][]float64{{1, 2}})
	assert.ErrorIs(t, err, models.ErrShapeMismatch)

	m, err := NewMatrix(tax.Subtags(), [][]float64{{1, 2, 3}})
	require.NoError(t, err)
	_, ok := m.Detail(0, 0)
	assert.False(t, ok)
}
