package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig locates the SQLite case store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// BootstrapConfig controls how an empty case store is seeded.
type BootstrapConfig struct {
	// ImportPath is a case export to load instead of the demo cases.
	ImportPath string `yaml:"import_path"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects the text embedder. "lexical" (or empty) disables
// embeddings and ranks by character overlap instead.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant collection.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbeddingCacheConfig selects where case embeddings are kept between runs.
type EmbeddingCacheConfig struct {
	Type   string        `yaml:"type"`
	Path   string        `yaml:"path"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// RetrievalConfig tunes matching.
type RetrievalConfig struct {
	Threshold         float64 `yaml:"threshold"`
	QueryCacheTTLSecs int     `yaml:"query_cache_ttl_secs"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Database       DatabaseConfig       `yaml:"database"`
	Bootstrap      BootstrapConfig      `yaml:"bootstrap"`
	Embedder       EmbedderConfig       `yaml:"embedder"`
	EmbeddingCache EmbeddingCacheConfig `yaml:"embedding_cache"`
	Retrieval      RetrievalConfig      `yaml:"retrieval"`
	Log            LogConfig            `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/pqrs/config.yaml.
// If neither exists, it writes defaults to ~/.config/pqrs/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pqrs", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Database:       DatabaseConfig{Path: "pqrs_sistema.db"},
		Embedder:       EmbedderConfig{Type: "tfidf"},
		EmbeddingCache: EmbeddingCacheConfig{Type: "file", Path: "embeddings_cache.json"},
		Retrieval:      RetrievalConfig{Threshold: 0.5, QueryCacheTTLSecs: 300},
		Log:            LogConfig{Level: "info", Format: "text"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Database.Path == "" {
		cfg.Database.Path = def.Database.Path
	}
	if cfg.EmbeddingCache.Type == "" {
		cfg.EmbeddingCache.Type = def.EmbeddingCache.Type
	}
	if cfg.EmbeddingCache.Type == "file" && cfg.EmbeddingCache.Path == "" {
		cfg.EmbeddingCache.Path = def.EmbeddingCache.Path
	}
	if cfg.Retrieval.Threshold == 0 {
		cfg.Retrieval.Threshold = def.Retrieval.Threshold
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.MaxRetries == 0 {
			cfg.Embedder.OpenAI.MaxRetries = 3
		}
	}
	if cfg.EmbeddingCache.Type == "qdrant" {
		if cfg.EmbeddingCache.Qdrant == nil {
			cfg.EmbeddingCache.Qdrant = &QdrantConfig{}
		}
		if cfg.EmbeddingCache.Qdrant.URL == "" {
			cfg.EmbeddingCache.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.EmbeddingCache.Qdrant.Collection == "" {
			cfg.EmbeddingCache.Qdrant.Collection = "pqrs_cases"
		}
	}
}
