package embedding

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedProvider memoizes embeddings in an LRU cache keyed by a hash of the input.
// Errors are never cached.
type CachedProvider struct {
	Provider
	cache *lru.Cache[uint64, []float32]
}

// NewCachedProvider wraps p with an LRU cache holding up to capacity embeddings.
func NewCachedProvider(p Provider, capacity int) (*CachedProvider, error) {
	cache, err := lru.New[uint64, []float32](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &CachedProvider{Provider: p, cache: cache}, nil
}

// Embed returns the cached embedding for in, calling the wrapped provider on a miss.
func (c *CachedProvider) Embed(ctx context.Context, in Input) ([]float32, error) {
	if in.Empty() {
		return nil, ErrEmptyInput
	}
	key := inputKey(in)
	if v, ok := c.cache.Get(key); ok {
		return append([]float32(nil), v...), nil
	}
	v, err := c.Provider.Embed(ctx, in)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, append([]float32(nil), v...))
	return v, nil
}

// Len returns the number of cached embeddings.
func (c *CachedProvider) Len() int {
	return c.cache.Len()
}
