// Package embedding turns text and images into vectors via an external model.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyInput is returned when neither text nor image is provided.
var ErrEmptyInput = errors.New("embedding input has neither text nor image")

// Input is the content to embed. Text-only, image-only, and combined inputs are all valid.
type Input struct {
	Text  string
	Image []byte
}

// Empty reports whether the input carries no text and no image.
func (in Input) Empty() bool {
	return in.Text == "" && len(in.Image) == 0
}

// Provider produces fixed-dimension embeddings. How text and image are combined
// into one vector is up to the provider.
type Provider interface {
	Embed(ctx context.Context, in Input) ([]float32, error)
	Dimensions() int
	ModelID() string
	Close() error
}
