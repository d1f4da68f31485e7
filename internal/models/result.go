// Package models defines the classification result and the error kinds shared across packages.
package models

// DecisionResult is the classification of one title against one taxonomy version.
// WinnerKeyword is empty when the title is not related to any keyword.
type DecisionResult struct {
	Title          string          `json:"title"`
	SuicideRelated bool            `json:"suicide_related"`
	KeywordMask    map[string]bool `json:"keyword_mask"`
	SubtagMask     map[string]bool `json:"subtag_mask"`
	WinnerKeyword  string          `json:"winner_keyword,omitempty"`
}

// ActiveSubtags returns the sub-tags set in mask, in the given order.
func (r *DecisionResult) ActiveSubtags(order []string) []string {
	var out []string
	for _, st := range order {
		if r.SubtagMask[st] {
			out = append(out, st)
		}
	}
	return out
}

// Attach copies the result onto a caller-owned record using prefixed field names
// (<prefix>_related, <prefix>_keyword_mask, <prefix>_subtag_mask).
func (r *DecisionResult) Attach(record map[string]interface{}, prefix string) {
	if prefix == "" {
		prefix = "suicide"
	}
	kw := make(map[string]bool, len(r.KeywordMask))
	for k, v := range r.KeywordMask {
		kw[k] = v
	}
	st := make(map[string]bool, len(r.SubtagMask))
	for k, v := range r.SubtagMask {
		st[k] = v
	}
	record[prefix+"_related"] = r.SuicideRelated
	record[prefix+"_keyword_mask"] = kw
	record[prefix+"_subtag_mask"] = st
}

// ClassifyRequest is the body of a classification request.
type ClassifyRequest struct {
	Version string   `json:"version,omitempty"`
	Titles  []string `json:"titles"`
	Save    bool     `json:"save,omitempty"`
}

// ClassifyResponse is the result of classifying a batch of titles.
type ClassifyResponse struct {
	RunID        string           `json:"run_id,omitempty"`
	Version      string           `json:"version"`
	Results      []DecisionResult `json:"results"`
	Total        int              `json:"total"`
	TotalRelated int              `json:"total_related"`
	StaleIndex   bool             `json:"stale_index,omitempty"`
	QueryTime    int64            `json:"query_time_ms"`
}
