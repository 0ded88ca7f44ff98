package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/katalog/internal/models"
	"github.com/hyperjump/katalog/internal/vector"
)

// FileCatalog implements Catalog on plain files: a JSON item list, an
// embeddings matrix (.npy or raw), and a JSON metadata file for the last run.
type FileCatalog struct {
	ItemsPath      string
	EmbeddingsPath string
	MetadataPath   string
}

// ReadItems implements vector.ItemSource.
func (f *FileCatalog) ReadItems(ctx context.Context) ([]models.Item, error) {
	return vector.ItemsFile{Path: f.ItemsPath}.ReadItems(ctx)
}

// ReadEmbeddings implements vector.EmbeddingSource.
func (f *FileCatalog) ReadEmbeddings(ctx context.Context) ([][]float32, error) {
	return vector.EmbeddingsFile{Path: f.EmbeddingsPath}.ReadEmbeddings(ctx)
}

// ReplaceCatalog writes both files to temporary names and renames them into
// place, embeddings last. A watcher therefore sees the items file change first.
func (f *FileCatalog) ReplaceCatalog(ctx context.Context, items []models.Item, vectors [][]float32) error {
	if len(items) != len(vectors) {
		return fmt.Errorf("%d items but %d embeddings: %w", len(items), len(vectors), vector.ErrIntegrity)
	}
	itemsTmp := tempName(f.ItemsPath)
	if err := vector.WriteItemsFile(itemsTmp, items); err != nil {
		return err
	}
	embTmp := tempName(f.EmbeddingsPath)
	if err := vector.WriteEmbeddingsFile(embTmp, vectors); err != nil {
		_ = os.Remove(itemsTmp)
		return err
	}
	if err := os.Rename(itemsTmp, f.ItemsPath); err != nil {
		_ = os.Remove(itemsTmp)
		_ = os.Remove(embTmp)
		return fmt.Errorf("replace items file: %w", err)
	}
	if err := os.Rename(embTmp, f.EmbeddingsPath); err != nil {
		_ = os.Remove(embTmp)
		return fmt.Errorf("replace embeddings file: %w", err)
	}
	return nil
}

// tempName keeps the extension so the embeddings codec is chosen correctly.
func tempName(path string) string {
	ext := filepath.Ext(path)
	base := filepath.Base(path)
	return filepath.Join(filepath.Dir(path), "."+base[:len(base)-len(ext)]+".tmp"+ext)
}

// CountItems returns the number of items in the items file.
func (f *FileCatalog) CountItems(ctx context.Context) (int64, error) {
	items, err := f.ReadItems(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(items)), nil
}

// RecordRun overwrites the metadata file with run.
func (f *FileCatalog) RecordRun(ctx context.Context, run *models.IngestRun) error {
	if f.MetadataPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.MetadataPath), 0755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run metadata: %w", err)
	}
	return os.WriteFile(f.MetadataPath, data, 0644)
}

// LatestRun reads the metadata file.
func (f *FileCatalog) LatestRun(ctx context.Context) (*models.IngestRun, error) {
	data, err := os.ReadFile(f.MetadataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("metadata file %s: %w", f.MetadataPath, vector.ErrNotFound)
		}
		return nil, err
	}
	var run models.IngestRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run metadata: %w", err)
	}
	return &run, nil
}

// Close is a no-op for FileCatalog.
func (f *FileCatalog) Close() error { return nil }
