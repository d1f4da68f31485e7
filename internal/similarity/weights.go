package similarity

import (
	"errors"
	"fmt"
	"math"
)

// Weights blend the four sub-scores into the fused score.
type Weights struct {
	TokenSubtag   float64
	SentSubtag    float64
	TokenCentroid float64
	SentCentroid  float64
}

// DefaultWeights returns 0.5/0.2/0.2/0.1.
func DefaultWeights() Weights {
	return Weights{TokenSubtag: 0.5, SentSubtag: 0.2, TokenCentroid: 0.2, SentCentroid: 0.1}
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.TokenSubtag + w.SentSubtag + w.TokenCentroid + w.SentCentroid
}

// Normalize scales w so its components sum to 1. Negative or non-finite components
// and an all-zero set are rejected.
func (w Weights) Normalize() (Weights, error) {
	for _, v := range []float64{w.TokenSubtag, w.SentSubtag, w.TokenCentroid, w.SentCentroid} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return Weights{}, fmt.Errorf("invalid weight %v", v)
		}
	}
	sum := w.Sum()
	if sum == 0 {
		return Weights{}, errors.New("weights sum to zero")
	}
	return Weights{
		TokenSubtag:   w.TokenSubtag / sum,
		SentSubtag:    w.SentSubtag / sum,
		TokenCentroid: w.TokenCentroid / sum,
		SentCentroid:  w.SentCentroid / sum,
	}, nil
}

// Fuse combines the four sub-scores of d.
func (w Weights) Fuse(d Detail) float64 {
	return w.TokenSubtag*d.TokenSubtag +
		w.SentSubtag*d.SentSubtag +
		w.TokenCentroid*d.TokenCentroid +
		w.SentCentroid*d.SentCentroid
}
