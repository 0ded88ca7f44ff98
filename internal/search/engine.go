// Package search answers catalog queries: it turns text and image input into a
// query embedding and runs it against the vector store.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/katalog/internal/config"
	"github.com/hyperjump/katalog/internal/embedding"
	"github.com/hyperjump/katalog/internal/models"
	"github.com/hyperjump/katalog/internal/vector"
)

var (
	// ErrInvalidQuery is returned when a query carries no usable input.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbeddingFailure wraps any error from the embedding provider, and an empty embedding.
	ErrEmbeddingFailure = errors.New("embedding failed")
)

// Index is the part of the vector store the engine queries. *vector.Store implements it.
type Index interface {
	Search(ctx context.Context, query []float32, topK int, threshold float64) ([]models.Match, error)
	SearchByItemID(ctx context.Context, id string, topK int, excludeSelf bool) ([]models.Match, error)
	LookupByID(id string) (models.Item, error)
	ListAll() []models.Item
	Stats() models.Stats
}

// Engine is the query handler. It holds no state of its own beyond its
// dependencies and is safe for concurrent use.
type Engine struct {
	index    Index
	provider embedding.Provider
	config   *config.SearchConfig
	logger   *zap.Logger
}

// NewEngine creates a search engine with the given dependencies. A nil logger is replaced with a no-op logger.
func NewEngine(index Index, provider embedding.Provider, cfg *config.SearchConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		defaults := &config.Config{}
		config.ApplyDefaults(defaults)
		cfg = &defaults.Search
	}
	return &Engine{index: index, provider: provider, config: cfg, logger: logger}
}

// SearchText embeds text and returns the closest items.
func (e *Engine) SearchText(ctx context.Context, text string, topK int, threshold float64) ([]models.Match, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidQuery)
	}
	return e.searchInput(ctx, embedding.Input{Text: text}, topK, threshold)
}

// SearchImage embeds image bytes and returns the closest items.
func (e *Engine) SearchImage(ctx context.Context, image []byte, topK int, threshold float64) ([]models.Match, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidQuery)
	}
	return e.searchInput(ctx, embedding.Input{Image: image}, topK, threshold)
}

// SearchMultimodal embeds whichever of text and image is present as a single
// provider call. At least one must be given; the provider is not called otherwise.
func (e *Engine) SearchMultimodal(ctx context.Context, text string, image []byte, topK int, threshold float64) ([]models.Match, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(image) == 0 {
		return nil, fmt.Errorf("%w: text or image is required", ErrInvalidQuery)
	}
	return e.searchInput(ctx, embedding.Input{Text: text, Image: image}, topK, threshold)
}

// SearchSimilar returns items close to the stored item with the given id. No embedding call is made.
func (e *Engine) SearchSimilar(ctx context.Context, id string, topK int, excludeSelf bool) ([]models.Match, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: item id is required", ErrInvalidQuery)
	}
	return e.index.SearchByItemID(ctx, id, topK, excludeSelf)
}

func (e *Engine) searchInput(ctx context.Context, in embedding.Input, topK int, threshold float64) ([]models.Match, error) {
	vec, err := e.provider.Embed(ctx, in)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Warn("query embedding failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: provider returned an empty embedding", ErrEmbeddingFailure)
	}
	return e.index.Search(ctx, vec, topK, threshold)
}

// Item returns the item with the given id.
func (e *Engine) Item(id string) (models.Item, error) {
	return e.index.LookupByID(id)
}

// Items returns every item in catalog order.
func (e *Engine) Items() []models.Item {
	return e.index.ListAll()
}

// Stats returns catalog statistics.
func (e *Engine) Stats() models.Stats {
	return e.index.Stats()
}

// Search normalizes query against the configured defaults, dispatches on its mode,
// and wraps the matches in a response.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Normalize(e.config.DefaultTopK, e.config.MaxTopK, e.config.ThresholdOrDefault()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if query.ExcludeSelf == nil {
		v := e.config.ExcludeSelfOrDefault()
		query.ExcludeSelf = &v
	}

	var (
		matches []models.Match
		err     error
	)
	threshold := query.ThresholdOrDefault()
	switch query.Mode {
	case models.ModeText:
		matches, err = e.SearchText(ctx, query.Text, query.TopK, threshold)
	case models.ModeImage:
		matches, err = e.SearchImage(ctx, query.Image, query.TopK, threshold)
	case models.ModeMultimodal:
		matches, err = e.SearchMultimodal(ctx, query.Text, query.Image, query.TopK, threshold)
	case models.ModeSimilar:
		threshold = vector.DefaultThreshold
		matches, err = e.SearchSimilar(ctx, query.ItemID, query.TopK, query.ExcludeSelfOrDefault())
	}
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []models.Match{}
	}

	resp := &models.SearchResponse{
		Mode:      query.Mode,
		Query:     query.Text,
		ItemID:    query.ItemID,
		TopK:      query.TopK,
		Threshold: threshold,
		Results:   matches,
		Total:     len(matches),
		QueryTime: time.Since(startTime).Milliseconds(),
	}
	e.logger.Debug("search",
		zap.String("mode", string(query.Mode)),
		zap.Int("results", resp.Total),
		zap.Int64("query_time_ms", resp.QueryTime))
	return resp, nil
}
