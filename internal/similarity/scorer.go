// Package similarity fuses token- and sentence-level cosine similarities between titles
// and the reference index into one score per (title, sub-tag).
package similarity

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/mindcast/internal/embedding"
	"github.com/hyperjump/mindcast/internal/index"
	"github.com/hyperjump/mindcast/internal/models"
	"github.com/hyperjump/mindcast/internal/taxonomy"
	"github.com/hyperjump/mindcast/pkg/utils"
)

// MaskedScore replaces token similarities at padded positions before the max, so a
// title with no valid token scores this value on the token terms.
const MaskedScore = -1e4

// Scorer computes similarity matrices. It holds no per-call state.
type Scorer struct {
	weights Weights
	workers int
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWorkers bounds how many titles are scored in parallel.
func WithWorkers(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewScorer returns a scorer using w normalized to sum 1.
func NewScorer(w Weights, opts ...Option) (*Scorer, error) {
	nw, err := w.Normalize()
	if err != nil {
		return nil, err
	}
	s := &Scorer{weights: nw, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Weights returns the normalized weights.
func (s *Scorer) Weights() Weights { return s.weights }

type reference struct {
	subtag   []float32
	centroid []float32
}

// Score returns the fused similarity of every title in batch against every sub-tag of tax,
// columns in taxonomy order.
func (s *Scorer) Score(ctx context.Context, batch *embedding.Batch, ix *index.Index, tax *taxonomy.Taxonomy) (*Matrix, error) {
	if err := batch.Validate(ix.Dimensions()); err != nil {
		return nil, err
	}
	if err := ix.Covers(tax); err != nil {
		return nil, err
	}

	cols := tax.Subtags()
	refs := make([]reference, len(cols))
	centroids := make(map[string][]float32)
	for j, ref := range cols {
		vec, _ := ix.Vector(ref.Keyword, ref.Subtag)
		c, ok := centroids[ref.Keyword]
		if !ok {
			raw, found := ix.Centroid(ref.Keyword)
			if !found {
				return nil, fmt.Errorf("%w: no centroid for keyword %s", models.ErrShapeMismatch, ref.Keyword)
			}
			c = utils.Normalized(raw)
			centroids[ref.Keyword] = c
		}
		refs[j] = reference{subtag: utils.Normalized(vec), centroid: c}
	}

	n := batch.Len()
	values := make([][]float64, n)
	details := make([][]Detail, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			details[i], values[i] = s.scoreTitle(batch.Tokens[i], batch.Mask[i], batch.Sentences[i], refs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Matrix{Cols: cols, Values: values, details: details}, nil
}

func (s *Scorer) scoreTitle(tokens [][]float32, mask []bool, sentence []float32, refs []reference) ([]Detail, []float64) {
	valid := make([][]float32, 0, len(tokens))
	for k, tok := range tokens {
		if mask[k] {
			valid = append(valid, utils.Normalized(tok))
		}
	}
	sent := utils.Normalized(sentence)

	details := make([]Detail, len(refs))
	fused := make([]float64, len(refs))
	for j, ref := range refs {
		d := Detail{
			TokenSubtag:   maxTokenScore(valid, ref.subtag),
			SentSubtag:    utils.Dot(sent, ref.subtag),
			TokenCentroid: maxTokenScore(valid, ref.centroid),
			SentCentroid:  utils.Dot(sent, ref.centroid),
		}
		d.Fused = s.weights.Fuse(d)
		details[j] = d
		fused[j] = d.Fused
	}
	return details, fused
}

func maxTokenScore(tokens [][]float32, ref []float32) float64 {
	best := float64(MaskedScore)
	for _, tok := range tokens {
		if v := utils.Dot(tok, ref); v > best {
			best = v
		}
	}
	return best
}
