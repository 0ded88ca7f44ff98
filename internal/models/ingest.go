package models

import "time"

// IngestRun records the outcome of one batch embedding run. It is written
// next to the embeddings file and, for the SQLite source, into the database.
type IngestRun struct {
	RunID                string    `json:"run_id"`
	TotalItems           int       `json:"total_items"`
	SuccessfulEmbeddings int       `json:"successful_embeddings"`
	FailedItems          []string  `json:"failed_items"`
	EmbeddingDimension   int       `json:"embedding_dimension"`
	ModelID              string    `json:"model_id"`
	CreatedAt            time.Time `json:"created_at"`
}
