// Package storage persists classification runs and their per-title results.
package storage

import (
	"context"

	"github.com/hyperjump/mindcast/internal/models"
)

// Storage defines run and result persistence operations.
type Storage interface {
	// Run operations
	CreateRun(ctx context.Context, run *models.Run, results []models.DecisionResult) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Result operations
	GetResults(ctx context.Context, runID string) ([]models.DecisionResult, error)

	// Stats
	CountRuns(ctx context.Context) (int64, error)
	CountResults(ctx context.Context) (int64, error)

	Close() error
}
