package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/hyperjump/katalog/internal/models"
)

func item(id, category string) models.Item {
	return models.Item{ID: id, Name: "Item " + id, Category: category}
}

// abcStore loads A=[1,0], B=[0,1], C=[1,0].
func abcStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(2)
	if err != nil {
		t.Fatal(err)
	}
	err = s.Load(context.Background(),
		StaticEmbeddings{{1, 0}, {0, 1}, {1, 0}},
		StaticItems{item("A", "desk"), item("B", "chair"), item("C", "desk")},
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func ids(matches []models.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.ID
	}
	return out
}

func TestStore_SearchTieBreakByIndex(t *testing.T) {
	s := abcStore(t)
	got, err := s.Search(context.Background(), []float32{1, 0}, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"A", "C"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("ids = %v, want %v", ids(got), want)
	}
	for _, m := range got {
		if math.Abs(m.Similarity-1) > 1e-9 {
			t.Errorf("%s similarity = %v, want 1", m.ID, m.Similarity)
		}
	}
}

func TestStore_SearchByItemIDExcludesSelf(t *testing.T) {
	s := abcStore(t)
	got, err := s.SearchByItemID(context.Background(), "A", 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "C" {
		t.Fatalf("got %v, want [C]", ids(got))
	}
	if math.Abs(got[0].Similarity-1) > 1e-9 {
		t.Errorf("similarity = %v, want 1", got[0].Similarity)
	}
}

func TestStore_SearchByItemIDIncludeSelf(t *testing.T) {
	s := abcStore(t)
	got, err := s.SearchByItemID(context.Background(), "C", 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"A", "C"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("ids = %v, want %v", ids(got), want)
	}
}

func TestStore_SearchHugeTopK(t *testing.T) {
	s := abcStore(t)
	ctx := context.Background()

	got, err := s.SearchByItemID(ctx, "A", math.MaxInt, true)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"C", "B"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("SearchByItemID(A, MaxInt, excludeSelf) = %v, want %v", ids(got), want)
	}

	got, err = s.SearchByItemID(ctx, "A", math.MaxInt, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"A", "C", "B"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("SearchByItemID(A, MaxInt) = %v, want %v", ids(got), want)
	}

	got, err = s.Search(ctx, []float32{1, 0}, math.MaxInt, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("Search(MaxInt) returned %d results, want 3", len(got))
	}
}

func TestStore_SearchByItemIDNotFound(t *testing.T) {
	s := abcStore(t)
	_, err := s.SearchByItemID(context.Background(), "Z", 3, true)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_ThresholdAppliedAfterTruncation(t *testing.T) {
	s, _ := NewStore(2)
	// Ranked: P(1.0), Q(0.0), R(-1.0) for query [1,0].
	_ = s.Load(context.Background(),
		StaticEmbeddings{{0, 1}, {1, 0}, {-1, 0}},
		StaticItems{item("Q", "x"), item("P", "x"), item("R", "x")},
	)
	got, err := s.Search(context.Background(), []float32{1, 0}, 2, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"P"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("ids = %v, want %v", ids(got), want)
	}

	// topK=1 with an unreachable threshold yields nothing.
	got, _ = s.Search(context.Background(), []float32{0, 1}, 1, 1)
	if len(got) != 1 {
		t.Fatalf("exact match should clear threshold 1, got %v", ids(got))
	}
	got, _ = s.Search(context.Background(), []float32{1, 1}, 1, 0.99)
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", ids(got))
	}
}

func TestStore_SearchProperties(t *testing.T) {
	s, _ := NewStore(3)
	vecs := StaticEmbeddings{}
	items := StaticItems{}
	for i := 0; i < 40; i++ {
		vecs = append(vecs, []float32{float32(i%7) - 3, float32(i%5) - 2, float32(i%3) - 1})
		items = append(items, item(fmt.Sprintf("p%d", i), "c"))
	}
	if err := s.Load(context.Background(), vecs, items); err != nil {
		t.Fatal(err)
	}
	query := []float32{0.5, -1, 2}
	for _, k := range []int{1, 5, 40, 100} {
		for _, th := range []float64{-1, 0, 0.3} {
			got, err := s.Search(context.Background(), query, k, th)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) > k {
				t.Errorf("k=%d: got %d results", k, len(got))
			}
			for i, m := range got {
				if m.Similarity < -1 || m.Similarity > 1 {
					t.Errorf("score %v outside [-1, 1]", m.Similarity)
				}
				if m.Similarity < th {
					t.Errorf("score %v below threshold %v", m.Similarity, th)
				}
				if i > 0 && got[i-1].Similarity < m.Similarity {
					t.Errorf("results not sorted at %d", i)
				}
			}
			again, _ := s.Search(context.Background(), query, k, th)
			if !reflect.DeepEqual(got, again) {
				t.Errorf("k=%d th=%v: search is not idempotent", k, th)
			}
		}
	}
}

func TestStore_ZeroVectorsRankLast(t *testing.T) {
	s, _ := NewStore(2)
	_ = s.Load(context.Background(),
		StaticEmbeddings{{0, 0}, {1, 1}, {0.2, 1}},
		StaticItems{item("failed", "x"), item("a", "x"), item("b", "x")},
	)
	got, err := s.Search(context.Background(), []float32{1, 0}, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range got {
		if m.ID == "failed" {
			t.Fatalf("zero vector returned in top results: %v", ids(got))
		}
	}
	if st := s.Stats(); st.ZeroEmbeddings != 1 {
		t.Errorf("ZeroEmbeddings = %d, want 1", st.ZeroEmbeddings)
	}
}

func TestStore_SearchErrors(t *testing.T) {
	empty, _ := NewStore(2)
	if _, err := empty.Search(context.Background(), []float32{1, 0}, 1, 0); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("unloaded: err = %v, want ErrNotLoaded", err)
	}
	s := abcStore(t)
	if _, err := s.Search(context.Background(), []float32{1, 0, 0}, 1, 0); !errors.Is(err, ErrShape) {
		t.Errorf("dimension: err = %v, want ErrShape", err)
	}
	if _, err := s.Search(context.Background(), []float32{1, 0}, 0, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("top_k: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.Search(context.Background(), []float32{1, 0}, 1, 1.5); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("threshold: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.Search(context.Background(), []float32{float32(math.NaN()), 0}, 1, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nan: err = %v, want ErrInvalidArgument", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Search(ctx, []float32{1, 0}, 1, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: err = %v, want context.Canceled", err)
	}
}

func TestStore_LoadMismatchKeepsPreviousSnapshot(t *testing.T) {
	s := abcStore(t)
	before := s.ListAll()
	err := s.Load(context.Background(),
		StaticEmbeddings{{1, 0}, {0, 1}, {1, 1}, {1, 2}, {2, 1}},
		StaticItems{item("w", "x"), item("x", "x"), item("y", "x"), item("z", "x")},
	)
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity", err)
	}
	if after := s.ListAll(); !reflect.DeepEqual(before, after) {
		t.Errorf("snapshot changed after failed load: %v", after)
	}
}

func TestStore_LoadMismatchOnEmptyStore(t *testing.T) {
	s, _ := NewStore(0)
	err := s.Load(context.Background(),
		StaticEmbeddings{{1}, {2}, {3}, {4}, {5}},
		StaticItems{item("a", ""), item("b", ""), item("c", ""), item("d", "")},
	)
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity", err)
	}
	if s.Loaded() {
		t.Error("store should remain unloaded")
	}
}

func TestStore_LoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		dim   int
		vecs  StaticEmbeddings
		items StaticItems
	}{
		{"ragged rows", 0, StaticEmbeddings{{1, 0}, {1}}, StaticItems{item("a", ""), item("b", "")}},
		{"configured dimension", 3, StaticEmbeddings{{1, 0}}, StaticItems{item("a", "")}},
		{"missing id", 2, StaticEmbeddings{{1, 0}}, StaticItems{{Name: "no id"}}},
		{"infinite component", 2, StaticEmbeddings{{float32(math.Inf(1)), 0}}, StaticItems{item("a", "")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := NewStore(tt.dim)
			if err := s.Load(context.Background(), tt.vecs, tt.items); !errors.Is(err, ErrIntegrity) {
				t.Errorf("err = %v, want ErrIntegrity", err)
			}
		})
	}
}

func TestStore_LoadMissingSources(t *testing.T) {
	s, _ := NewStore(2)
	dir := t.TempDir()
	err := s.Load(context.Background(),
		EmbeddingsFile{Path: filepath.Join(dir, "missing.npy")},
		ItemsFile{Path: filepath.Join(dir, "products.json")},
	)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing embeddings: err = %v, want ErrNotFound", err)
	}
	if err := WriteEmbeddingsFile(filepath.Join(dir, "e.npy"), [][]float32{{1, 0}}); err != nil {
		t.Fatal(err)
	}
	err = s.Load(context.Background(),
		EmbeddingsFile{Path: filepath.Join(dir, "e.npy")},
		ItemsFile{Path: filepath.Join(dir, "products.json")},
	)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing items: err = %v, want ErrNotFound", err)
	}
	if err := s.Load(context.Background(), nil, StaticItems{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("nil source: err = %v, want ErrNotFound", err)
	}
}

func TestStore_DuplicateIDs(t *testing.T) {
	vecs := StaticEmbeddings{{1, 0}, {0, 1}}
	items := StaticItems{{ID: "dup", Name: "first"}, {ID: "dup", Name: "second"}}

	s, _ := NewStore(2)
	if err := s.Load(context.Background(), vecs, items); err != nil {
		t.Fatal(err)
	}
	got, err := s.LookupByID("dup")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "first" {
		t.Errorf("LookupByID returned %q, want first occurrence", got.Name)
	}

	strict, _ := NewStore(2, WithUniqueIDs())
	if err := strict.Load(context.Background(), vecs, items); !errors.Is(err, ErrIntegrity) {
		t.Errorf("unique ids: err = %v, want ErrIntegrity", err)
	}
}

func TestStore_LookupListStats(t *testing.T) {
	s := abcStore(t)
	got, err := s.LookupByID("B")
	if err != nil {
		t.Fatal(err)
	}
	got.Name = "mutated"
	again, _ := s.LookupByID("B")
	if again.Name == "mutated" {
		t.Error("LookupByID must return a copy")
	}
	if _, err := s.LookupByID("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	all := s.ListAll()
	if want := []string{"A", "B", "C"}; len(all) != 3 || all[0].ID != want[0] || all[2].ID != want[2] {
		t.Errorf("ListAll = %v", all)
	}
	all[0].ID = "changed"
	if s.ListAll()[0].ID != "A" {
		t.Error("ListAll must return a copy")
	}

	st := s.Stats()
	if st.TotalItems != 3 || st.TotalEmbeddings != 3 || st.EmbeddingDimension != 2 {
		t.Errorf("Stats = %+v", st)
	}
	if want := []string{"chair", "desk"}; !reflect.DeepEqual(st.Categories, want) {
		t.Errorf("Categories = %v, want %v", st.Categories, want)
	}
}

func TestStore_VectorReturnsCopy(t *testing.T) {
	s := abcStore(t)
	v, err := s.Vector("B")
	if err != nil {
		t.Fatal(err)
	}
	v[0] = 9
	again, _ := s.Vector("B")
	if again[0] != 0 {
		t.Error("Vector must return a copy")
	}
}

func TestStore_LoadCopiesInput(t *testing.T) {
	vecs := StaticEmbeddings{{1, 0}}
	s, _ := NewStore(2)
	_ = s.Load(context.Background(), vecs, StaticItems{item("a", "")})
	vecs[0][0] = -1
	got, _ := s.Search(context.Background(), []float32{1, 0}, 1, 0.5)
	if len(got) != 1 {
		t.Error("store must not alias caller vectors")
	}
}

func TestStore_ConcurrentSearchDuringReload(t *testing.T) {
	s := abcStore(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got, err := s.Search(ctx, []float32{1, 0}, 2, 0)
				if err != nil {
					t.Error(err)
					return
				}
				if len(got) != 2 {
					t.Errorf("got %d results", len(got))
					return
				}
			}
		}()
	}
	for i := 0; i < 20; i++ {
		_ = s.Load(ctx,
			StaticEmbeddings{{1, 0}, {0, 1}, {1, 0}},
			StaticItems{item("A", "desk"), item("B", "chair"), item("C", "desk")},
		)
	}
	wg.Wait()
}
