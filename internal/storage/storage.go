// Package storage persists catalog snapshots (items plus their embeddings) and ingest run records.
package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/katalog/internal/models"
	"github.com/hyperjump/katalog/internal/vector"
)

// Catalog is a persistent home for one catalog snapshot. Implementations are
// also vector.ItemSource and vector.EmbeddingSource, so a Store can load from them.
type Catalog interface {
	ReadItems(ctx context.Context) ([]models.Item, error)
	ReadEmbeddings(ctx context.Context) ([][]float32, error)

	// ReplaceCatalog atomically replaces every item and embedding. Row i of
	// vectors belongs to items[i].
	ReplaceCatalog(ctx context.Context, items []models.Item, vectors [][]float32) error
	CountItems(ctx context.Context) (int64, error)

	RecordRun(ctx context.Context, run *models.IngestRun) error
	LatestRun(ctx context.Context) (*models.IngestRun, error)

	Close() error
}

// Loader reloads a vector store from a catalog. It serves the reload endpoint
// and the file watcher.
type Loader struct {
	store   *vector.Store
	catalog Catalog
	logger  *zap.Logger
	hooks   []func(items []models.Item) error
}

// NewLoader creates a loader. A nil logger is replaced with a no-op logger.
func NewLoader(store *vector.Store, catalog Catalog, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, catalog: catalog, logger: logger}
}

// Reload reads the catalog and swaps it into the store. On failure the store keeps its previous snapshot.
func (l *Loader) Reload(ctx context.Context) error {
	start := time.Now()
	if err := l.store.Load(ctx, l.catalog, l.catalog); err != nil {
		l.logger.Error("catalog reload failed", zap.Error(err))
		return err
	}
	l.logger.Info("catalog reloaded", zap.Duration("took", time.Since(start)))
	if len(l.hooks) > 0 {
		items := l.store.ListAll()
		for _, hook := range l.hooks {
			if err := hook(items); err != nil {
				l.logger.Warn("reload hook failed", zap.Error(err))
			}
		}
	}
	return nil
}

// OnReload registers fn to run with the loaded items after every successful
// reload. Hook errors are logged and do not fail the reload.
func (l *Loader) OnReload(fn func(items []models.Item) error) {
	l.hooks = append(l.hooks, fn)
}
