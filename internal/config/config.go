// Package config provides configuration loading and structs for the katalog server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Storage sources.
const (
	SourceFile   = "file"
	SourceSQLite = "sqlite"
)

// StorageConfig holds where the catalog snapshot lives.
// With source "file" the items JSON and embeddings matrix are read from disk;
// with "sqlite" both come from the database.
type StorageConfig struct {
	Source         string `yaml:"source"`
	ItemsPath      string `yaml:"items_path"`
	EmbeddingsPath string `yaml:"embeddings_path"`
	MetadataPath   string `yaml:"metadata_path"`
	DatabasePath   string `yaml:"database_path"`
	ImagesDir      string `yaml:"images_dir"`
}

// Embedding providers.
const (
	ProviderBedrock = "bedrock"
	ProviderMock    = "mock"
)

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider       string        `yaml:"provider"`
	ModelID        string        `yaml:"model_id"`
	Region         string        `yaml:"region"`
	Dimensions     int           `yaml:"dimensions"`
	CacheSize      int           `yaml:"cache_size"`
	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	DefaultTopK      int      `yaml:"default_top_k"`
	MaxTopK          int      `yaml:"max_top_k"`
	DefaultThreshold *float64 `yaml:"default_threshold"`
	ExcludeSelf      *bool    `yaml:"exclude_self"`
	UniqueIDs        bool     `yaml:"unique_ids"`
	// KeywordFuzziness is the edit distance allowed by the item listing's q filter (0 = exact terms).
	KeywordFuzziness int `yaml:"keyword_fuzziness"`
}

// ThresholdOrDefault returns the default similarity threshold; 0.5 when unset.
// Zero is a valid value meaning "admit every non-negative score".
func (s *SearchConfig) ThresholdOrDefault() float64 {
	if s.DefaultThreshold != nil {
		return *s.DefaultThreshold
	}
	return 0.5
}

// ExcludeSelfOrDefault returns whether similar-item queries drop the query item; defaults to true when unset.
func (s *SearchConfig) ExcludeSelfOrDefault() bool {
	if s.ExcludeSelf != nil {
		return *s.ExcludeSelf
	}
	return true
}

// IngestConfig holds batch embedding settings.
type IngestConfig struct {
	Concurrency       int     `yaml:"concurrency"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	DescriptionLimit  int     `yaml:"description_limit"`
}

// WatchConfig controls reloading the store when its source files change.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed, or holds unknown source/provider names.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.ItemsPath = expandPath(cfg.Storage.ItemsPath, configDir)
	cfg.Storage.EmbeddingsPath = expandPath(cfg.Storage.EmbeddingsPath, configDir)
	cfg.Storage.MetadataPath = expandPath(cfg.Storage.MetadataPath, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.ImagesDir = expandPath(cfg.Storage.ImagesDir, configDir)

	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Storage.Source {
	case SourceFile, SourceSQLite:
	default:
		return fmt.Errorf("unknown storage source %q (supported: file, sqlite)", c.Storage.Source)
	}
	switch c.Embedding.Provider {
	case ProviderBedrock, ProviderMock:
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: bedrock, mock)", c.Embedding.Provider)
	}
	if t := c.Search.ThresholdOrDefault(); t < -1 || t > 1 {
		return fmt.Errorf("search.default_threshold must be within [-1, 1], got %g", t)
	}
	if c.Search.DefaultTopK < 1 || c.Search.MaxTopK < 0 {
		return fmt.Errorf("search.default_top_k must be positive and search.max_top_k non-negative")
	}
	if f := c.Search.KeywordFuzziness; f < 0 || f > 2 {
		return fmt.Errorf("search.keyword_fuzziness must be 0, 1 or 2, got %d", f)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
