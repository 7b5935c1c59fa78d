// Package config provides configuration loading and structs for the Kotaeru server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotaeru/internal/vector"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Splitter  SplitterConfig  `yaml:"splitter"`
	Store     StoreConfig     `yaml:"store"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// IngestConfig holds source paths and chunking settings.
type IngestConfig struct {
	Paths        []string `yaml:"paths"`
	Patterns     []string `yaml:"patterns"`
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap *int     `yaml:"chunk_overlap"`
}

// ChunkOverlapOrDefault returns the chunk overlap; explicit zero is
// respected, only an unset value falls back to the default.
func (i *IngestConfig) ChunkOverlapOrDefault() int {
	if i.ChunkOverlap != nil {
		return *i.ChunkOverlap
	}
	return 50
}

// SplitterConfig holds the separator hierarchy for the recursive splitter.
type SplitterConfig struct {
	Separators []string `yaml:"separators"`
}

// StoreConfig holds vector store settings.
type StoreConfig struct {
	Metric       string `yaml:"metric"`
	SnapshotPath string `yaml:"snapshot_path"`
}

// RetrievalConfig holds query-time defaults.
type RetrievalConfig struct {
	TopK      int      `yaml:"top_k"`
	Threshold *float64 `yaml:"threshold"`
}

// ThresholdOrDefault returns the minimum similarity score; explicit zero
// is respected, only an unset value falls back to the default.
func (r *RetrievalConfig) ThresholdOrDefault() float64 {
	if r.Threshold != nil {
		return *r.Threshold
	}
	return 0.3
}

// EmbeddingConfig holds embedder client settings. The API key is read
// from the environment variable named by APIKeyEnv, never from YAML.
type EmbeddingConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
	CacheSize int    `yaml:"cache_size"`
}

// LLMConfig holds generator client settings.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Load reads and parses the config file at path, applies defaults, expands
// paths, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	data = []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Store.SnapshotPath = expandPath(cfg.Store.SnapshotPath, configDir)
	for i := range cfg.Ingest.Paths {
		cfg.Ingest.Paths[i] = expandPath(cfg.Ingest.Paths[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail deep inside the
// pipeline with a less helpful error.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if !vector.SimilarityMetric(c.Store.Metric).Valid() {
		return fmt.Errorf("unsupported similarity metric %q", c.Store.Metric)
	}
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	overlap := c.Ingest.ChunkOverlapOrDefault()
	if overlap < 0 {
		return fmt.Errorf("chunk_overlap must not be negative, got %d", overlap)
	}
	if overlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("chunk_overlap %d must be smaller than chunk_size %d",
			overlap, c.Ingest.ChunkSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.Retrieval.TopK)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; "~/" expands to the home directory; other relative paths are
// relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	rest := strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, rest)
	}
	return path
}
