package vector

import "errors"

var (
	// ErrNotFound reports a missing source file, record, or item id.
	ErrNotFound = errors.New("not found")
	// ErrIntegrity reports embeddings and items that cannot be joined by position.
	ErrIntegrity = errors.New("integrity error")
	// ErrShape reports a query vector whose dimension differs from the store's.
	ErrShape = errors.New("shape mismatch")
	// ErrNotLoaded is returned by searches against a store that has never been loaded.
	ErrNotLoaded = errors.New("vector store not loaded")
	// ErrInvalidArgument reports an out-of-range top-k or threshold.
	ErrInvalidArgument = errors.New("invalid argument")
)
