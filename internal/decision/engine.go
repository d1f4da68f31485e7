// Package decision turns fused similarity scores into per-title tag decisions.
package decision

import (
	"fmt"

	"github.com/hyperjump/mindcast/internal/models"
	"github.com/hyperjump/mindcast/internal/similarity"
	"github.com/hyperjump/mindcast/internal/taxonomy"
)

// Policy holds the keyword-level gates.
type Policy struct {
	// LowRelevanceThreshold is the minimum best keyword average for a title to be
	// considered at all.
	LowRelevanceThreshold float64
	// CentroidThreshold is the keyword average needed to enter the shortlist.
	CentroidThreshold float64
}

// DefaultPolicy returns 0.5 relevance and 0.40 shortlist thresholds.
func DefaultPolicy() Policy {
	return Policy{LowRelevanceThreshold: 0.5, CentroidThreshold: 0.40}
}

// KeywordScore is a keyword's mean fused score over its sub-tags.
type KeywordScore struct {
	Keyword string  `json:"keyword"`
	Average float64 `json:"average"`
}

// Trace records how the gates resolved for one title.
type Trace struct {
	Averages  []KeywordScore `json:"averages"`
	Relevant  bool           `json:"relevant"`
	Shortlist []string       `json:"shortlist,omitempty"`
	// Selected is the keyword whose sub-tags were tested, set even when none activated.
	Selected string `json:"selected,omitempty"`
}

// Engine applies a Policy. It is stateless and safe for concurrent use.
type Engine struct {
	policy Policy
}

// NewEngine returns an engine for p.
func NewEngine(p Policy) *Engine {
	return &Engine{policy: p}
}

// Policy returns the engine's thresholds.
func (e *Engine) Policy() Policy { return e.policy }

// Decide returns one result per matrix row.
func (e *Engine) Decide(m *similarity.Matrix, tax *taxonomy.Taxonomy) ([]models.DecisionResult, error) {
	results, _, err := e.run(m, tax)
	return results, err
}

// Trace returns the gate outcome per matrix row alongside the decisions.
func (e *Engine) Trace(m *similarity.Matrix, tax *taxonomy.Taxonomy) ([]models.DecisionResult, []Trace, error) {
	return e.run(m, tax)
}

type span struct {
	keyword    string
	start, end int
}

func (e *Engine) run(m *similarity.Matrix, tax *taxonomy.Taxonomy) ([]models.DecisionResult, []Trace, error) {
	cols := tax.Subtags()
	if len(m.Cols) != len(cols) {
		return nil, nil, fmt.Errorf("%w: matrix has %d columns, taxonomy %s has %d sub-tags",
			models.ErrShapeMismatch, len(m.Cols), tax.Version(), len(cols))
	}
	for j := range cols {
		if m.Cols[j] != cols[j] {
			return nil, nil, fmt.Errorf("%w: column %d is %s/%s, taxonomy expects %s/%s",
				models.ErrShapeMismatch, j, m.Cols[j].Keyword, m.Cols[j].Subtag, cols[j].Keyword, cols[j].Subtag)
		}
	}

	var spans []span
	pos := 0
	for _, kw := range tax.Keywords() {
		spans = append(spans, span{keyword: kw.Name, start: pos, end: pos + len(kw.Subtags)})
		pos += len(kw.Subtags)
	}

	results := make([]models.DecisionResult, len(m.Values))
	traces := make([]Trace, len(m.Values))
	for i, row := range m.Values {
		if len(row) != len(cols) {
			return nil, nil, fmt.Errorf("%w: row %d has %d scores for %d sub-tags",
				models.ErrShapeMismatch, i, len(row), len(cols))
		}
		results[i], traces[i] = e.decideRow(row, cols, spans, tax)
	}
	return results, traces, nil
}

func (e *Engine) decideRow(row []float64, cols []taxonomy.SubtagRef, spans []span, tax *taxonomy.Taxonomy) (models.DecisionResult, Trace) {
	res := models.DecisionResult{
		KeywordMask: make(map[string]bool, len(spans)),
		SubtagMask:  make(map[string]bool, len(cols)),
	}
	for _, sp := range spans {
		res.KeywordMask[sp.keyword] = false
	}
	for _, c := range cols {
		res.SubtagMask[c.Subtag] = false
	}

	var tr Trace
	best := 0
	for k, sp := range spans {
		var sum float64
		for j := sp.start; j < sp.end; j++ {
			sum += row[j]
		}
		avg := sum / float64(sp.end-sp.start)
		tr.Averages = append(tr.Averages, KeywordScore{Keyword: sp.keyword, Average: avg})
		if avg > tr.Averages[best].Average {
			best = k
		}
	}
	if tr.Averages[best].Average < e.policy.LowRelevanceThreshold {
		return res, tr
	}
	tr.Relevant = true

	winner := -1
	for k, ks := range tr.Averages {
		if ks.Average >= e.policy.CentroidThreshold {
			tr.Shortlist = append(tr.Shortlist, ks.Keyword)
			if winner < 0 || ks.Average > tr.Averages[winner].Average {
				winner = k
			}
		}
	}
	if winner < 0 {
		// Nothing cleared the shortlist gate; fall back to every keyword.
		for _, ks := range tr.Averages {
			tr.Shortlist = append(tr.Shortlist, ks.Keyword)
		}
		winner = best
	}

	sp := spans[winner]
	tr.Selected = sp.keyword
	for j := sp.start; j < sp.end; j++ {
		st := cols[j].Subtag
		if row[j] > tax.Threshold(st) {
			res.SubtagMask[st] = true
			res.KeywordMask[sp.keyword] = true
		}
	}
	res.SuicideRelated = res.KeywordMask[sp.keyword]
	if res.SuicideRelated {
		res.WinnerKeyword = sp.keyword
	}
	return res, tr
}
