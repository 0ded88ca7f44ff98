package embedding

import (
	"context"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/hyperjump/katalog/pkg/utils"
)

// MockProvider is a deterministic provider for tests and offline use. The
// same input always gets the same unit-length embedding.
type MockProvider struct {
	dimensions int
}

// NewMockProvider returns a provider that produces deterministic embeddings of the given dimensions.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = 1024
	}
	return &MockProvider{dimensions: dimensions}
}

// Embed returns a deterministic embedding derived from a hash of the text and image.
func (e *MockProvider) Embed(ctx context.Context, in Input) ([]float32, error) {
	if in.Empty() {
		return nil, ErrEmptyInput
	}
	h := float64(inputKey(in) % 100003)
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(h*float64(i+1))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockProvider) Dimensions() int { return e.dimensions }

// ModelID returns "mock".
func (e *MockProvider) ModelID() string { return "mock" }

// Close is a no-op for MockProvider.
func (e *MockProvider) Close() error { return nil }

// inputKey hashes text and image separately so that ("ab", nil) and ("a", "b") differ.
func inputKey(in Input) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(in.Text)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(in.Image)
	return d.Sum64() ^ uint64(len(in.Text))<<32
}
