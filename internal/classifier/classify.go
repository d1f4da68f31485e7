// Package classifier tags news titles against a month-versioned taxonomy.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/mindcast/internal/decision"
	"github.com/hyperjump/mindcast/internal/embedding"
	"github.com/hyperjump/mindcast/internal/index"
	"github.com/hyperjump/mindcast/internal/models"
	"github.com/hyperjump/mindcast/internal/similarity"
	"github.com/hyperjump/mindcast/internal/taxonomy"
)

// Options tune scoring and the decision gates.
type Options struct {
	Weights similarity.Weights
	Policy  decision.Policy
	Workers int
}

// DefaultOptions returns the default weights and policy with one worker per CPU.
func DefaultOptions() Options {
	return Options{Weights: similarity.DefaultWeights(), Policy: decision.DefaultPolicy()}
}

// Classify encodes titles, scores them against ix and decides tags per title.
// Results are in title order. An empty input returns an empty result without
// touching the encoder.
func Classify(
	ctx context.Context,
	enc embedding.Encoder,
	titles []string,
	tax *taxonomy.Taxonomy,
	ix *index.Index,
	opts Options,
) ([]models.DecisionResult, error) {
	scorer, err := similarity.NewScorer(opts.Weights, similarity.WithWorkers(opts.Workers))
	if err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}
	return run(ctx, enc, titles, tax, ix, scorer, decision.NewEngine(opts.Policy))
}

func run(
	ctx context.Context,
	enc embedding.Encoder,
	titles []string,
	tax *taxonomy.Taxonomy,
	ix *index.Index,
	scorer *similarity.Scorer,
	engine *decision.Engine,
) ([]models.DecisionResult, error) {
	if len(titles) == 0 {
		return []models.DecisionResult{}, nil
	}
	m, err := score(ctx, enc, titles, tax, ix, scorer)
	if err != nil {
		return nil, err
	}
	results, err := engine.Decide(m, tax)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Title = titles[i]
	}
	return results, nil
}

func score(
	ctx context.Context,
	enc embedding.Encoder,
	titles []string,
	tax *taxonomy.Taxonomy,
	ix *index.Index,
	scorer *similarity.Scorer,
) (*similarity.Matrix, error) {
	if enc == nil {
		return nil, models.WrapError(models.ErrEncoderUnavailable, "encode titles", errors.New("no encoder configured"))
	}
	batch, err := enc.EncodeBatch(ctx, titles)
	if err != nil {
		if errors.Is(err, models.ErrEncoderUnavailable) || errors.Is(err, models.ErrShapeMismatch) {
			return nil, err
		}
		return nil, models.WrapError(models.ErrEncoderUnavailable, "encode titles", err)
	}
	if batch.Len() != len(titles) {
		return nil, fmt.Errorf("%w: encoder returned %d embeddings for %d titles",
			models.ErrShapeMismatch, batch.Len(), len(titles))
	}
	return scorer.Score(ctx, batch, ix, tax)
}
