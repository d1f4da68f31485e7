package models

import "time"

// Run is one persisted classification call.
type Run struct {
	ID           string    `json:"id"`
	Version      string    `json:"version"`
	TitleCount   int       `json:"title_count"`
	RelatedCount int       `json:"related_count"`
	StaleIndex   bool      `json:"stale_index,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RunDetail is a run with its per-title results in input order.
type RunDetail struct {
	Run
	Results []DecisionResult `json:"results"`
}
