package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/katalog/internal/models"
)

// EmbeddingSource yields the embedding matrix, one row per item, in catalog order.
// A source that does not exist must return an error wrapping ErrNotFound.
type EmbeddingSource interface {
	ReadEmbeddings(ctx context.Context) ([][]float32, error)
}

// ItemSource yields the item records in catalog order.
// A source that does not exist must return an error wrapping ErrNotFound.
type ItemSource interface {
	ReadItems(ctx context.Context) ([]models.Item, error)
}

// EmbeddingsFile reads embeddings from a .npy file, or from the raw matrix layout for any other extension.
type EmbeddingsFile struct {
	Path string
}

// ReadEmbeddings implements EmbeddingSource.
func (f EmbeddingsFile) ReadEmbeddings(ctx context.Context) ([][]float32, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("embeddings file %s: %w", f.Path, ErrNotFound)
		}
		return nil, fmt.Errorf("open embeddings file: %w", err)
	}
	defer file.Close()
	if isNPY(f.Path) {
		return ReadNPY(file)
	}
	return ReadMatrix(file)
}

// ItemsFile reads items from a JSON array.
type ItemsFile struct {
	Path string
}

// ReadItems implements ItemSource.
func (f ItemsFile) ReadItems(ctx context.Context) ([]models.Item, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("items file %s: %w", f.Path, ErrNotFound)
		}
		return nil, fmt.Errorf("read items file: %w", err)
	}
	var items []models.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse items file: %w", err)
	}
	return items, nil
}

// WriteEmbeddingsFile writes rows to path, choosing the layout from the extension.
// The parent directory is created if needed.
func WriteEmbeddingsFile(path string, rows [][]float32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create embeddings dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create embeddings file: %w", err)
	}
	if isNPY(path) {
		err = WriteNPY(file, rows)
	} else {
		err = WriteMatrix(file, rows)
	}
	if err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteItemsFile writes items to path as an indented JSON array.
func WriteItemsFile(path string, items []models.Item) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create items dir: %w", err)
	}
	if items == nil {
		items = []models.Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write items file: %w", err)
	}
	return nil
}

func isNPY(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".npy")
}

// StaticEmbeddings is an in-memory EmbeddingSource.
type StaticEmbeddings [][]float32

// ReadEmbeddings implements EmbeddingSource.
func (e StaticEmbeddings) ReadEmbeddings(context.Context) ([][]float32, error) {
	return e, nil
}

// StaticItems is an in-memory ItemSource.
type StaticItems []models.Item

// ReadItems implements ItemSource.
func (s StaticItems) ReadItems(context.Context) ([]models.Item, error) {
	return s, nil
}
