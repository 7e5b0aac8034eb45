package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, "file", cfg.EmbeddingCache.Type)
	assert.Equal(t, 0.5, cfg.Retrieval.Threshold)
	assert.Equal(t, "pqrs_sistema.db", cfg.Database.Path)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedder:
  type: openai
embedding_cache:
  type: qdrant
retrieval:
  threshold: 0.7
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 30, cfg.Embedder.OpenAI.TimeoutSecs)
	require.NotNil(t, cfg.EmbeddingCache.Qdrant)
	assert.Equal(t, "pqrs_cases", cfg.EmbeddingCache.Qdrant.Collection)
	assert.Equal(t, 0.7, cfg.Retrieval.Threshold)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "pqrs_sistema.db", cfg.Database.Path)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Bootstrap.ImportPath = "PQRS_NUEVAS_CON_SQL.txt"
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "pqrs", "config.yaml"), path)
	assert.Equal(t, defaultConfig(), cfg)
	assert.FileExists(t, path)
}
