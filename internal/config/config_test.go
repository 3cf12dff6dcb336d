package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.Ollama.URL)
	assert.NotEmpty(t, cfg.Ollama.ChatModel)
	assert.NotEmpty(t, cfg.Ollama.EmbedModel)
	assert.Equal(t, 24000, cfg.Context.Budget)
	assert.Equal(t, 1200, cfg.Embedding.ChunkSize)
	assert.Equal(t, 200, cfg.Embedding.ChunkOverlap)
	assert.Equal(t, 8, cfg.Embedding.TopK)
	assert.Equal(t, 12, cfg.Review.MaxIterations)
	assert.Equal(t, 10, cfg.Review.MaxPaths)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Contains(t, cfg.Context.ReferenceFiles, "README.md")
	assert.Contains(t, cfg.Review.ExcludePatterns, "vendor")
}

func TestLoadYAMLOverrides(t *testing.T) {
	root := t.TempDir()
	yaml := `
ollama:
  url: http://remote:11434
  chat_model: llama3:70b
context:
  budget: 5000
review:
  max_iterations: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "repolens.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "http://remote:11434", cfg.Ollama.URL)
	assert.Equal(t, "llama3:70b", cfg.Ollama.ChatModel)
	assert.Equal(t, 5000, cfg.Context.Budget)
	assert.Equal(t, 3, cfg.Review.MaxIterations)

	// Untouched keys keep their defaults.
	assert.Equal(t, "nomic-embed-text", cfg.Ollama.EmbedModel)
	assert.Equal(t, 1200, cfg.Embedding.ChunkSize)
}

func TestLoadDotDirConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".repolens"), 0o755))
	yaml := "context:\n  budget: 777\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".repolens", "repolens.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 777, cfg.Context.Budget)
}

func TestLoadMalformedYAML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "repolens.yaml"), []byte("{{not yaml"), 0o644))

	_, err := Load(root)
	assert.Error(t, err)
}
