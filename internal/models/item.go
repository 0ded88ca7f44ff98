// Package models defines core data structures for catalog items, queries, and search results.
package models

// Item is one catalog entry. Items are loaded wholesale and never mutated by the store.
type Item struct {
	ID             string `json:"product_id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Description    string `json:"description,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	LocalImagePath string `json:"local_image_path,omitempty"`
	DetailURL      string `json:"detail_url,omitempty"`
}

// Match is an item copied out of the store with the similarity it scored for one query.
type Match struct {
	Item
	Similarity float64 `json:"similarity"`
}

// Stats summarizes a loaded store.
type Stats struct {
	TotalItems         int      `json:"total_products"`
	EmbeddingDimension int      `json:"embedding_dimension"`
	TotalEmbeddings    int      `json:"total_embeddings"`
	ZeroEmbeddings     int      `json:"zero_embeddings"`
	Categories         []string `json:"categories"`
}
