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

	"github.com/hyperjump/katalog/internal/models"
	"github.com/hyperjump/katalog/internal/vector"
)

// SQLiteCatalog implements Catalog using SQLite. Items and embeddings are keyed
// by their position in the catalog so order survives a round trip.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteCatalog(dbPath string) (*SQLiteCatalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCatalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		position INTEGER PRIMARY KEY,
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT,
		image_url TEXT,
		local_image_path TEXT,
		detail_url TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_items_product_id ON items(product_id);

	CREATE TABLE IF NOT EXISTS embeddings (
		position INTEGER PRIMARY KEY,
		vector BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS catalog_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		dimension INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ingest_runs (
		run_id TEXT PRIMARY KEY,
		metadata TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ingest_runs_created_at ON ingest_runs(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// written reports whether ReplaceCatalog has ever run against this database.
func (s *SQLiteCatalog) written(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_meta`).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReadItems returns every item ordered by position. It fails with vector.ErrNotFound
// if no catalog has been written yet.
func (s *SQLiteCatalog) ReadItems(ctx context.Context) ([]models.Item, error) {
	ok, err := s.written(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("sqlite catalog has no items: %w", vector.ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, name, category, description, image_url, local_image_path, detail_url
		 FROM items ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		var desc, imageURL, localPath, detailURL sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &desc, &imageURL, &localPath, &detailURL); err != nil {
			return nil, err
		}
		item.Description = desc.String
		item.ImageURL = imageURL.String
		item.LocalImagePath = localPath.String
		item.DetailURL = detailURL.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReadEmbeddings returns every embedding ordered by position. It fails with
// vector.ErrNotFound if no catalog has been written yet.
func (s *SQLiteCatalog) ReadEmbeddings(ctx context.Context) ([][]float32, error) {
	ok, err := s.written(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("sqlite catalog has no embeddings: %w", vector.ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT position, vector FROM embeddings ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vectors := [][]float32{}
	for rows.Next() {
		var pos int
		var blob []byte
		if err := rows.Scan(&pos, &blob); err != nil {
			return nil, err
		}
		v, err := vector.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("embedding at position %d: %w", pos, err)
		}
		vectors = append(vectors, v)
	}
	return vectors, rows.Err()
}

// ReplaceCatalog swaps the stored catalog for items and vectors in one transaction.
func (s *SQLiteCatalog) ReplaceCatalog(ctx context.Context, items []models.Item, vectors [][]float32) error {
	if len(items) != len(vectors) {
		return fmt.Errorf("%d items but %d embeddings: %w", len(items), len(vectors), vector.ErrIntegrity)
	}
	dimension := 0
	if len(vectors) > 0 {
		dimension = len(vectors[0])
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM items`, `DELETE FROM embeddings`, `DELETE FROM catalog_meta`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	itemStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (position, product_id, name, category, description, image_url, local_image_path, detail_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer itemStmt.Close()

	vecStmt, err := tx.PrepareContext(ctx, `INSERT INTO embeddings (position, vector) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	for i, item := range items {
		if _, err := itemStmt.ExecContext(ctx, i, item.ID, item.Name, item.Category,
			item.Description, item.ImageURL, item.LocalImagePath, item.DetailURL); err != nil {
			return fmt.Errorf("insert item %d: %w", i, err)
		}
		if _, err := vecStmt.ExecContext(ctx, i, vector.EncodeVector(vectors[i])); err != nil {
			return fmt.Errorf("insert embedding %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO catalog_meta (id, dimension, updated_at) VALUES (1, ?, ?)`,
		dimension, time.Now()); err != nil {
		return err
	}
	return tx.Commit()
}

// CountItems returns the number of stored items.
func (s *SQLiteCatalog) CountItems(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	return count, err
}

// RecordRun stores the metadata of an ingest run.
func (s *SQLiteCatalog) RecordRun(ctx context.Context, run *models.IngestRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (run_id, metadata, created_at) VALUES (?, ?, ?)`,
		run.RunID, string(data), run.CreatedAt)
	return err
}

// LatestRun returns the most recently created ingest run, or vector.ErrNotFound if none exists.
func (s *SQLiteCatalog) LatestRun(ctx context.Context) (*models.IngestRun, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT metadata FROM ingest_runs ORDER BY created_at DESC LIMIT 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no ingest runs: %w", vector.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var run models.IngestRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run metadata: %w", err)
	}
	return &run, nil
}

// Close closes the database connection.
func (s *SQLiteCatalog) Close() error {
	return s.db.Close()
}
