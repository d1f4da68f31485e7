package similarity

import (
	"fmt"

	"github.com/hyperjump/mindcast/internal/models"
	"github.com/hyperjump/mindcast/internal/taxonomy"
)

// Detail is the breakdown of one fused score.
type Detail struct {
	TokenSubtag   float64 `json:"token_subtag"`
	SentSubtag    float64 `json:"sent_subtag"`
	TokenCentroid float64 `json:"token_centroid"`
	SentCentroid  float64 `json:"sent_centroid"`
	Fused         float64 `json:"fused"`
}

// Matrix holds fused scores with one row per title and one column per sub-tag.
type Matrix struct {
	Cols    []taxonomy.SubtagRef
	Values  [][]float64
	details [][]Detail
}

// NewMatrix wraps precomputed fused scores. Every row must have len(cols) values.
func NewMatrix(cols []taxonomy.SubtagRef, values [][]float64) (*Matrix, error) {
	for i, row := range values {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("%w: row %d has %d scores for %d sub-tags",
				models.ErrShapeMismatch, i, len(row), len(cols))
		}
	}
	return &Matrix{Cols: cols, Values: values}, nil
}

// Rows returns the number of titles.
func (m *Matrix) Rows() int { return len(m.Values) }

// Detail returns the sub-scores behind Values[row][col]. ok is false when the matrix was
// not produced by a Scorer or the position is out of range.
func (m *Matrix) Detail(row, col int) (Detail, bool) {
	if row < 0 || row >= len(m.details) || col < 0 || col >= len(m.details[row]) {
		return Detail{}, false
	}
	return m.details[row][col], true
}
