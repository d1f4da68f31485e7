package index

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteCache stores encoded indexes as blobs, one row per version.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens or creates the database at dbPath.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS embedding_indexes (
		version TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		payload BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

// Load reads the index for version.
func (c *SQLiteCache) Load(ctx context.Context, version string) (*Index, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM embedding_indexes WHERE version = ?`, version,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	ix, err := Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode index %s: %w", version, err)
	}
	return ix, nil
}

// Store replaces the row for ix.Version() in a single transaction.
func (c *SQLiteCache) Store(ctx context.Context, ix *Index) error {
	var buf bytes.Buffer
	if err := Encode(&buf, ix); err != nil {
		return fmt.Errorf("encode index %s: %w", ix.Version(), err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO embedding_indexes (version, fingerprint, dimensions, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ix.Version(), ix.Fingerprint(), ix.Dimensions(), buf.Bytes(), time.Now(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the row for version.
func (c *SQLiteCache) Delete(ctx context.Context, version string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM embedding_indexes WHERE version = ?`, version)
	return err
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
