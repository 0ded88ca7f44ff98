// Package indexer embeds a catalog in batch and persists the result as a new snapshot.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hyperjump/katalog/internal/config"
	"github.com/hyperjump/katalog/internal/embedding"
	"github.com/hyperjump/katalog/internal/models"
	"github.com/hyperjump/katalog/internal/storage"
)

// ErrNoImage is recorded when an item's local image is missing or unreadable.
var ErrNoImage = errors.New("item image not available")

// Indexer embeds every item of a catalog (text description plus local image)
// and writes the items and embeddings to a storage.Catalog.
type Indexer struct {
	provider  embedding.Provider
	catalog   storage.Catalog
	config    *config.IngestConfig
	imagesDir string
	limiter   *rate.Limiter
	logger    *zap.Logger // optional; when set, logs per-item failures
	progress  func(done, total int)
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for per-item warnings and the run summary.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithProgress registers a callback invoked after each item with the number of
// items finished so far. It may be called from several goroutines, one call at a time.
func WithProgress(fn func(done, total int)) IndexerOption {
	return func(idx *Indexer) { idx.progress = fn }
}

// WithImagesDir resolves relative local image paths against dir.
func WithImagesDir(dir string) IndexerOption {
	return func(idx *Indexer) { idx.imagesDir = dir }
}

// NewIndexer creates an indexer. Provider calls are throttled to
// cfg.RequestsPerSecond (unlimited when not positive) across cfg.Concurrency workers.
func NewIndexer(provider embedding.Provider, catalog storage.Catalog, cfg *config.IngestConfig, opts ...IndexerOption) *Indexer {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	idx := &Indexer{
		provider: provider,
		catalog:  catalog,
		config:   cfg,
		limiter:  rate.NewLimiter(limit, 1),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Run embeds items and replaces the catalog with them. Row i of the written
// embeddings always belongs to items[i]; an item whose image is missing or
// whose embedding fails gets a zero vector and is listed in FailedItems.
// Run only returns an error for cancellation or a storage failure.
func (idx *Indexer) Run(ctx context.Context, items []models.Item) (*models.IngestRun, error) {
	dims := idx.provider.Dimensions()
	vectors := make([][]float32, len(items))
	failed := make([]bool, len(items))

	workers := idx.config.Concurrency
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var (
		progressMu sync.Mutex
		done       int
	)
	for i := range items {
		i := i
		g.Go(func() error {
			if err := idx.limiter.Wait(gctx); err != nil {
				return err
			}
			vec, err := idx.embedItem(gctx, items[i], dims)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if idx.logger != nil {
					idx.logger.Warn("item embedding failed",
						zap.String("product_id", items[i].ID), zap.Error(err))
				}
				vec = make([]float32, dims)
				failed[i] = true
			}
			vectors[i] = vec
			progressMu.Lock()
			done++
			if idx.progress != nil {
				idx.progress(done, len(items))
			}
			progressMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingest interrupted: %w", err)
	}

	run := &models.IngestRun{
		RunID:              uuid.New().String(),
		TotalItems:         len(items),
		FailedItems:        []string{},
		EmbeddingDimension: dims,
		ModelID:            idx.provider.ModelID(),
		CreatedAt:          time.Now().UTC(),
	}
	for i, f := range failed {
		if f {
			run.FailedItems = append(run.FailedItems, items[i].ID)
		}
	}
	run.SuccessfulEmbeddings = run.TotalItems - len(run.FailedItems)

	if err := idx.catalog.ReplaceCatalog(ctx, items, vectors); err != nil {
		return nil, fmt.Errorf("failed to store catalog: %w", err)
	}
	if err := idx.catalog.RecordRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	if idx.logger != nil {
		idx.logger.Info("ingest complete",
			zap.String("run_id", run.RunID),
			zap.Int("items", run.TotalItems),
			zap.Int("failed", len(run.FailedItems)))
	}
	return run, nil
}

func (idx *Indexer) embedItem(ctx context.Context, item models.Item, dims int) ([]float32, error) {
	image, err := idx.readImage(item)
	if err != nil {
		return nil, err
	}
	vec, err := idx.provider.Embed(ctx, embedding.Input{
		Text:  Describe(item, idx.config.DescriptionLimit),
		Image: image,
	})
	if err != nil {
		return nil, err
	}
	if len(vec) != dims {
		return nil, fmt.Errorf("embedding has dimension %d, want %d", len(vec), dims)
	}
	return vec, nil
}

func (idx *Indexer) readImage(item models.Item) ([]byte, error) {
	if item.LocalImagePath == "" {
		return nil, ErrNoImage
	}
	path := item.LocalImagePath
	if !filepath.IsAbs(path) && idx.imagesDir != "" {
		path = filepath.Join(idx.imagesDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoImage, err)
	}
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	return data, nil
}
