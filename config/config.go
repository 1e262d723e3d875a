// Package config loads the YAML configuration used by the journalit CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/journalit/ai"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Storage   StorageConfig   `yaml:"storage"`
	AI        AIConfig        `yaml:"ai"`
	Search    SearchConfig    `yaml:"search"`
	Context   ContextConfig   `yaml:"context"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Reembed   ReembedConfig   `yaml:"reembed"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// StorageConfig holds the document store path and the optional PostgreSQL
// vector index.
type StorageConfig struct {
	Path        string `yaml:"path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Dimensions  int    `yaml:"dimensions"`
}

// AIConfig mirrors ai.Config.
type AIConfig struct {
	EmbeddingHost     string  `yaml:"embedding_host"`
	AnalyzerHost      string  `yaml:"analyzer_host"`
	EmbeddingModel    string  `yaml:"embedding_model"`
	AnalyzerModel     string  `yaml:"analyzer_model"`
	APIKey            string  `yaml:"api_key"`
	MaxListItems      int     `yaml:"max_list_items"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// SearchConfig holds retrieval settings.
// A cache_size of 0 disables the query embedding cache.
type SearchConfig struct {
	OversampleFactor int  `yaml:"oversample_factor"`
	PartialResults   bool `yaml:"partial_results"`
	DedupePerSource  bool `yaml:"dedupe_per_source"`
	CacheSize        *int `yaml:"cache_size"`
	KeywordTags      bool `yaml:"keyword_tags"`
}

// ContextConfig holds context assembly settings.
// An explicit 0 leaves that half of the context empty; an absent key
// takes the default.
type ContextConfig struct {
	TopK        *int `yaml:"top_k"`
	RecentTurns *int `yaml:"recent_turns"`
}

// IngestionConfig holds indexing pipeline settings.
type IngestionConfig struct {
	Workers int `yaml:"workers"`
}

// ReembedConfig holds re-embedding settings.
type ReembedConfig struct {
	BatchSize  int `yaml:"batch_size"`
	MaxRetries int `yaml:"max_retries"`
}

// MetricsConfig holds the optional Pushgateway target.
type MetricsConfig struct {
	PushURL string `yaml:"push_url"`
	Job     string `yaml:"job"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Load reads and parses the config file at path, applies defaults and
// expands the storage path. An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	cfg.Storage.Path = expandPath(cfg.Storage.Path, filepath.Dir(path))
	return &cfg, nil
}

// ApplyDefaults fills zero values.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = ".journalit"
	}

	def := ai.DefaultConfig()
	if cfg.AI.EmbeddingHost == "" {
		cfg.AI.EmbeddingHost = def.EmbeddingHost
	}
	if cfg.AI.AnalyzerHost == "" {
		cfg.AI.AnalyzerHost = cfg.AI.EmbeddingHost
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = def.EmbeddingModel
	}
	if cfg.AI.AnalyzerModel == "" {
		cfg.AI.AnalyzerModel = def.AnalyzerModel
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = def.APIKey
	}
	if cfg.AI.MaxListItems == 0 {
		cfg.AI.MaxListItems = def.MaxListItems
	}

	if cfg.Search.OversampleFactor == 0 {
		cfg.Search.OversampleFactor = 2
	}
	if cfg.Search.CacheSize == nil {
		cfg.Search.CacheSize = intPtr(1024)
	}
	if cfg.Context.TopK == nil {
		cfg.Context.TopK = intPtr(5)
	}
	if cfg.Context.RecentTurns == nil {
		cfg.Context.RecentTurns = intPtr(3)
	}
	if cfg.Ingestion.Workers == 0 {
		cfg.Ingestion.Workers = 4
	}
	if cfg.Reembed.BatchSize == 0 {
		cfg.Reembed.BatchSize = 32
	}
	if cfg.Reembed.MaxRetries == 0 {
		cfg.Reembed.MaxRetries = 3
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "journalit"
	}
}

func intPtr(n int) *int {
	return &n
}

// AIConfig converts the ai section into an *ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithAnalyzerHost(c.AI.AnalyzerHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithAnalyzerModel(c.AI.AnalyzerModel),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithMaxListItems(c.AI.MaxListItems),
		ai.WithRequestsPerSecond(c.AI.RequestsPerSecond),
	)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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
