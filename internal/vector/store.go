package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hyperjump/katalog/internal/models"
)

// DefaultThreshold admits every non-negative score. SearchByItemID uses it for the underlying search.
const DefaultThreshold = 0.0

// snapshot is one validated, immutable (embeddings, items) pair. Position i in
// vectors, norms, and items always refers to the same item.
type snapshot struct {
	items     []models.Item
	vectors   [][]float32
	norms     []float64
	dimension int
	zero      int
}

// Store holds the catalog embedding matrix and its parallel item records and
// answers exact nearest-neighbor queries against them.
//
// Searches read the current snapshot without locking. Load validates a new
// snapshot completely before swapping it in, so a failed load leaves the
// previous snapshot in place. Loads are serialized with each other.
type Store struct {
	dimension int
	uniqueIDs bool
	logger    *zap.Logger
	loadMu    sync.Mutex
	current   atomic.Pointer[snapshot]
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for load summaries and warnings.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithUniqueIDs makes Load reject catalogs in which an item id appears more than once.
func WithUniqueIDs() StoreOption {
	return func(s *Store) { s.uniqueIDs = true }
}

// NewStore creates an empty store. A positive dimension is enforced on every
// load; zero means the dimension is taken from the loaded embeddings.
func NewStore(dimension int, opts ...StoreOption) (*Store, error) {
	if dimension < 0 {
		return nil, fmt.Errorf("dimensions must not be negative")
	}
	s := &Store{dimension: dimension, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load reads both sources, validates that they can be joined by position, and
// replaces the current snapshot. On any error the current snapshot is unchanged.
func (s *Store) Load(ctx context.Context, embeddings EmbeddingSource, items ItemSource) error {
	if embeddings == nil {
		return fmt.Errorf("embeddings source: %w", ErrNotFound)
	}
	if items == nil {
		return fmt.Errorf("items source: %w", ErrNotFound)
	}
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	vectors, err := embeddings.ReadEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}
	records, err := items.ReadItems(ctx)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	snap, err := s.build(vectors, records)
	if err != nil {
		return err
	}

	s.current.Store(snap)

	s.logger.Info("vector store loaded",
		zap.Int("items", len(snap.items)),
		zap.Int("dimension", snap.dimension),
		zap.Int("zero_vectors", snap.zero),
	)
	return nil
}

func (s *Store) build(vectors [][]float32, records []models.Item) (*snapshot, error) {
	if len(vectors) != len(records) {
		return nil, fmt.Errorf("%w: %d embeddings but %d items", ErrIntegrity, len(vectors), len(records))
	}
	dim := s.dimension
	if dim == 0 && len(vectors) > 0 {
		dim = len(vectors[0])
	}
	snap := &snapshot{
		items:     make([]models.Item, len(records)),
		vectors:   make([][]float32, len(vectors)),
		norms:     make([]float64, len(vectors)),
		dimension: dim,
	}
	seen := make(map[string]int, len(records))
	duplicates := 0
	for i, item := range records {
		if item.ID == "" {
			return nil, fmt.Errorf("%w: item at position %d has no id", ErrIntegrity, i)
		}
		if first, ok := seen[item.ID]; ok {
			if s.uniqueIDs {
				return nil, fmt.Errorf("%w: item id %q at positions %d and %d", ErrIntegrity, item.ID, first, i)
			}
			duplicates++
		} else {
			seen[item.ID] = i
		}
		vec := vectors[i]
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, expected %d", ErrIntegrity, i, len(vec), dim)
		}
		if !finite(vec) {
			return nil, fmt.Errorf("%w: embedding %d has non-finite components", ErrIntegrity, i)
		}
		cp := make([]float32, dim)
		copy(cp, vec)
		snap.items[i] = item
		snap.vectors[i] = cp
		snap.norms[i] = L2Norm(cp)
		if snap.norms[i] == 0 {
			snap.zero++
		}
	}
	if duplicates > 0 {
		s.logger.Warn("duplicate item ids; lookups return the first occurrence", zap.Int("duplicates", duplicates))
	}
	return snap, nil
}

// Loaded reports whether a snapshot has been installed.
func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}

// Dimension returns the dimension of the loaded snapshot, or the configured dimension before any load.
func (s *Store) Dimension() int {
	if snap := s.current.Load(); snap != nil {
		return snap.dimension
	}
	return s.dimension
}

// Search ranks every stored embedding by cosine similarity to query, keeps the
// first topK (ties broken by catalog order), and then drops candidates scoring
// below threshold. The threshold is applied only within the top-K candidates.
func (s *Store) Search(ctx context.Context, query []float32, topK int, threshold float64) ([]models.Match, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	if err := validateSearch(snap, query, topK, threshold); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return snap.search(query, topK, threshold), nil
}

func validateSearch(snap *snapshot, query []float32, topK int, threshold float64) error {
	if len(query) != snap.dimension {
		return fmt.Errorf("%w: query has dimension %d, expected %d", ErrShape, len(query), snap.dimension)
	}
	if !finite(query) {
		return fmt.Errorf("%w: query has non-finite components", ErrInvalidArgument)
	}
	if topK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1, got %d", ErrInvalidArgument, topK)
	}
	if threshold < -1 || threshold > 1 {
		return fmt.Errorf("%w: threshold must be within [-1, 1], got %g", ErrInvalidArgument, threshold)
	}
	return nil
}

type scored struct {
	index int
	score float64
}

func (snap *snapshot) search(query []float32, topK int, threshold float64) []models.Match {
	qNorm := L2Norm(query)
	scores := make([]scored, len(snap.vectors))
	for i, vec := range snap.vectors {
		scores[i] = scored{index: i, score: cosine(InnerProduct(query, vec), qNorm, snap.norms[i])}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].index < scores[j].index
	})
	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]models.Match, 0, topK)
	for _, c := range scores[:topK] {
		if c.score >= threshold {
			results = append(results, models.Match{Item: snap.items[c.index], Similarity: c.score})
		}
	}
	return results
}

// SearchByItemID finds items similar to the stored item with the given id (the
// first one in catalog order). With excludeSelf, it searches for topK+1
// candidates, removes every result carrying the query id, and truncates to topK.
func (s *Store) SearchByItemID(ctx context.Context, id string, topK int, excludeSelf bool) ([]models.Match, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	idx := snap.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	query := snap.vectors[idx]
	if err := validateSearch(snap, query, topK, DefaultThreshold); err != nil {
		return nil, err
	}
	// Clamp before adding the self slot so topK near MaxInt cannot overflow.
	k := min(topK, len(snap.items))
	if excludeSelf {
		k++
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := snap.search(query, k, DefaultThreshold)
	if !excludeSelf {
		return results, nil
	}
	filtered := results[:0]
	for _, m := range results {
		if m.ID != id {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered, nil
}

func (snap *snapshot) indexOf(id string) int {
	for i := range snap.items {
		if snap.items[i].ID == id {
			return i
		}
	}
	return -1
}

// LookupByID returns a copy of the first item with the given id.
func (s *Store) LookupByID(id string) (models.Item, error) {
	snap := s.current.Load()
	if snap == nil {
		return models.Item{}, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	idx := snap.indexOf(id)
	if idx < 0 {
		return models.Item{}, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	return snap.items[idx], nil
}

// Vector returns a copy of the stored embedding of the first item with the given id.
func (s *Store) Vector(id string) ([]float32, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	idx := snap.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	return append([]float32(nil), snap.vectors[idx]...), nil
}

// ListAll returns a copy of every item in catalog order.
func (s *Store) ListAll() []models.Item {
	snap := s.current.Load()
	if snap == nil {
		return []models.Item{}
	}
	out := make([]models.Item, len(snap.items))
	copy(out, snap.items)
	return out
}

// Stats returns item and embedding counts, the dimension, and the sorted set of categories.
func (s *Store) Stats() models.Stats {
	snap := s.current.Load()
	if snap == nil {
		return models.Stats{Categories: []string{}}
	}
	set := make(map[string]struct{})
	for _, item := range snap.items {
		set[item.Category] = struct{}{}
	}
	categories := make([]string, 0, len(set))
	for c := range set {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return models.Stats{
		TotalItems:         len(snap.items),
		EmbeddingDimension: snap.dimension,
		TotalEmbeddings:    len(snap.vectors),
		ZeroEmbeddings:     snap.zero,
		Categories:         categories,
	}
}
