package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/mindcast/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	// DSN pragmas apply to every pooled connection, not just the first.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		version TEXT NOT NULL,
		title_count INTEGER NOT NULL,
		related_count INTEGER NOT NULL,
		stale_index INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		related INTEGER NOT NULL,
		winner_keyword TEXT,
		keyword_mask TEXT NOT NULL,
		subtag_mask TEXT NOT NULL,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateRun inserts a run and its results in one transaction.
func (s *SQLiteStorage) CreateRun(ctx context.Context, run *models.Run, results []models.DecisionResult) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, version, title_count, related_count, stale_index, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Version, run.TitleCount, run.RelatedCount, run.StaleIndex, run.CreatedAt,
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, position, title, related, winner_keyword, keyword_mask, subtag_mask)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range results {
		kw, err := json.Marshal(r.KeywordMask)
		if err != nil {
			return fmt.Errorf("failed to marshal keyword mask: %w", err)
		}
		st, err := json.Marshal(r.SubtagMask)
		if err != nil {
			return fmt.Errorf("failed to marshal subtag mask: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, r.Title, r.SuicideRelated, r.WinnerKeyword, string(kw), string(st)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetRun returns a run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*models.Run, error) {
	var run models.Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, version, title_count, related_count, stale_index, created_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Version, &run.TitleCount, &run.RelatedCount, &run.StaleIndex, &run.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns runs newest first with offset and limit.
func (s *SQLiteStorage) ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version, title_count, related_count, stale_index, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		var run models.Run
		if err := rows.Scan(&run.ID, &run.Version, &run.TitleCount, &run.RelatedCount, &run.StaleIndex, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its results.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE run_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// GetResults returns a run's results in input order.
func (s *SQLiteStorage) GetResults(ctx context.Context, runID string) ([]models.DecisionResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, related, winner_keyword, keyword_mask, subtag_mask
		 FROM results WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.DecisionResult
	for rows.Next() {
		var (
			r      models.DecisionResult
			winner sql.NullString
			kw, st string
		)
		if err := rows.Scan(&r.Title, &r.SuicideRelated, &winner, &kw, &st); err != nil {
			return nil, err
		}
		r.WinnerKeyword = winner.String
		if err := json.Unmarshal([]byte(kw), &r.KeywordMask); err != nil {
			return nil, fmt.Errorf("failed to unmarshal keyword mask: %w", err)
		}
		if err := json.Unmarshal([]byte(st), &r.SubtagMask); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subtag mask: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CountRuns returns the total number of runs.
func (s *SQLiteStorage) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// CountResults returns the total number of stored title results.
func (s *SQLiteStorage) CountResults(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
