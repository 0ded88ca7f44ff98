package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Source == "" {
		cfg.Storage.Source = SourceFile
	}
	if cfg.Storage.ItemsPath == "" {
		cfg.Storage.ItemsPath = "/usr/local/var/katalog/data/products.json"
	}
	if cfg.Storage.EmbeddingsPath == "" {
		cfg.Storage.EmbeddingsPath = "/usr/local/var/katalog/data/embeddings.npy"
	}
	if cfg.Storage.MetadataPath == "" {
		cfg.Storage.MetadataPath = "/usr/local/var/katalog/data/embeddings_metadata.json"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/katalog/data/catalog.db"
	}
	if cfg.Storage.ImagesDir == "" {
		cfg.Storage.ImagesDir = "/usr/local/var/katalog/data/images"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderBedrock
	}
	if cfg.Embedding.ModelID == "" {
		cfg.Embedding.ModelID = "amazon.titan-embed-image-v1"
	}
	if cfg.Embedding.Region == "" {
		cfg.Embedding.Region = "us-east-1"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1024
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}
	if cfg.Embedding.RequestTimeout == 0 {
		cfg.Embedding.RequestTimeout = 30 * time.Second
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 12
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 100
	}
	if cfg.Search.DefaultThreshold == nil {
		t := 0.5
		cfg.Search.DefaultThreshold = &t
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = 1
	}
	if cfg.Ingest.RequestsPerSecond == 0 {
		cfg.Ingest.RequestsPerSecond = 10
	}
	if cfg.Ingest.DescriptionLimit == 0 {
		cfg.Ingest.DescriptionLimit = 200
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 400 * time.Millisecond
	}
}
