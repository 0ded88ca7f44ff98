// Package keyword provides an in-memory full-text index over catalog item
// names, categories and descriptions. It backs the keyword filter of the item
// listing; similarity search never goes through it.
package keyword

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/katalog/internal/models"
)

// ErrNotBuilt is returned by Search before the first Rebuild.
var ErrNotBuilt = errors.New("keyword index not built")

// Result is one keyword hit. Position is the item's index in the catalog.
type Result struct {
	Item     models.Item
	Position int
	Score    float64
}

// document is the indexed shape of an item.
type document struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Index is a rebuildable full-text index. Rebuild replaces the whole index, so
// results always describe one catalog snapshot.
type Index struct {
	mu        sync.RWMutex
	index     bleve.Index
	items     []models.Item
	fuzziness int
}

// Option configures an Index.
type Option func(*Index)

// WithFuzziness enables typo-tolerant matching up to the given edit distance (at most 2).
func WithFuzziness(n int) Option {
	return func(x *Index) {
		if n > 2 {
			n = 2
		}
		x.fuzziness = n
	}
}

// NewIndex creates an empty index.
func NewIndex(opts ...Option) *Index {
	x := &Index{}
	for _, o := range opts {
		o(x)
	}
	return x
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "oak" matches "Oak" but not "oaken".
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("category", textFieldMapping)
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	im.DefaultMapping = docMapping
	return im
}

// Rebuild indexes items into a fresh in-memory index and swaps it in. Items are
// keyed by position, so duplicate product ids are all indexed.
func (x *Index) Rebuild(items []models.Item) error {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return fmt.Errorf("failed to create keyword index: %w", err)
	}
	batch := idx.NewBatch()
	for i, item := range items {
		doc := document{Name: item.Name, Category: item.Category, Description: item.Description}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			_ = idx.Close()
			return fmt.Errorf("failed to index item %q: %w", item.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("failed to index catalog: %w", err)
	}

	owned := make([]models.Item, len(items))
	copy(owned, items)

	x.mu.Lock()
	old := x.index
	x.index, x.items = idx, owned
	x.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Search returns up to limit items matching query, best first.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.search(ctx, query, limit)
}

// search runs query against the current index; callers hold mu.
func (x *Index) search(ctx context.Context, query string, limit int) ([]Result, error) {
	if x.index == nil {
		return nil, ErrNotBuilt
	}
	query = strings.TrimSpace(query)
	if query == "" || limit < 1 {
		return []Result{}, nil
	}

	req := bleve.NewSearchRequest(x.buildQuery(query))
	req.Size = limit
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		pos, err := strconv.Atoi(hit.ID)
		if err != nil || pos < 0 || pos >= len(x.items) {
			continue
		}
		out = append(out, Result{Item: x.items[pos], Position: pos, Score: hit.Score})
	}
	return out, nil
}

// Filter returns every item matching query in catalog order, the order the
// unfiltered listing uses.
func (x *Index) Filter(ctx context.Context, query string) ([]models.Item, error) {
	x.mu.RLock()
	results, err := x.search(ctx, query, len(x.items))
	x.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Position < results[j].Position })
	items := make([]models.Item, len(results))
	for i, r := range results {
		items[i] = r.Item
	}
	return items, nil
}

// buildQuery matches any term. With fuzziness set, each term becomes a fuzzy query.
func (x *Index) buildQuery(query string) blevequery.Query {
	if x.fuzziness <= 0 {
		return bleve.NewMatchQuery(query)
	}
	terms := strings.Fields(strings.ToLower(query))
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(x.fuzziness)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Len returns the number of indexed items.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.items)
}

// Close releases the index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.index == nil {
		return nil
	}
	err := x.index.Close()
	x.index = nil
	return err
}
