package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all resolved settings. Components receive plain values from
// here; nothing below cmd/ reads the environment or config files directly.
type Config struct {
	Ollama    Ollama    `mapstructure:"ollama"`
	Context   Context   `mapstructure:"context"`
	Embedding Embedding `mapstructure:"embedding"`
	Review    Review    `mapstructure:"review"`
	Discovery Discovery `mapstructure:"discovery"`
	Cache     Cache     `mapstructure:"cache"`
}

// Ollama configures the LLM service endpoint and models.
type Ollama struct {
	URL        string        `mapstructure:"url"`
	ChatModel  string        `mapstructure:"chat_model"`
	EmbedModel string        `mapstructure:"embed_model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Context configures context assembly.
type Context struct {
	// Budget is the global character cap for an assembled context string.
	Budget         int      `mapstructure:"budget"`
	ReferenceFiles []string `mapstructure:"reference_files"`
	FallbackFiles  []string `mapstructure:"fallback_files"`
}

// Embedding configures chunking and retrieval.
type Embedding struct {
	ChunkSize        int `mapstructure:"chunk_size"`
	ChunkOverlap     int `mapstructure:"chunk_overlap"`
	TopK             int `mapstructure:"top_k"`
	MaxChunksPerFile int `mapstructure:"max_chunks_per_file"`
	MaxTotalChunks   int `mapstructure:"max_total_chunks"`
	// MinQuestionLen is the shortest question worth embedding; anything
	// shorter short-circuits the retrieval stage.
	MinQuestionLen int `mapstructure:"min_question_len"`
}

// Review configures the autonomous review loop.
type Review struct {
	MaxIterations   int      `mapstructure:"max_iterations"`
	MaxPaths        int      `mapstructure:"max_paths"`
	MaxFileBytes    int64    `mapstructure:"max_file_bytes"`
	DefaultFocus    string   `mapstructure:"default_focus"`
	ExcludePatterns []string `mapstructure:"exclude_patterns"`
}

// Discovery bounds the repository scan presented to the LLM.
type Discovery struct {
	MaxFiles   int      `mapstructure:"max_files"`
	Extensions []string `mapstructure:"extensions"`
}

// Cache configures the answer cache.
type Cache struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	// Dir is the BadgerDB directory. Empty means the in-memory backend.
	Dir string `mapstructure:"dir"`
}

// Load reads repolens.yaml from the repository root (if present), applies
// REPOLENS_* environment overrides, and fills in defaults for everything else.
func Load(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("repolens")
	v.SetConfigType("yaml")
	v.AddConfigPath(root)
	v.AddConfigPath(filepath.Join(root, ".repolens"))

	v.SetEnvPrefix("REPOLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.chat_model", "qwen3:8b")
	v.SetDefault("ollama.embed_model", "nomic-embed-text")
	v.SetDefault("ollama.timeout", 5*time.Minute)

	v.SetDefault("context.budget", 24000)
	v.SetDefault("context.reference_files", []string{"README.md", "ARCHITECTURE.md", "docs/overview.md"})
	v.SetDefault("context.fallback_files", []string{"go.mod", "main.go", "Makefile"})

	v.SetDefault("embedding.chunk_size", 1200)
	v.SetDefault("embedding.chunk_overlap", 200)
	v.SetDefault("embedding.top_k", 8)
	v.SetDefault("embedding.max_chunks_per_file", 50)
	v.SetDefault("embedding.max_total_chunks", 2000)
	v.SetDefault("embedding.min_question_len", 12)

	v.SetDefault("review.max_iterations", 12)
	v.SetDefault("review.max_paths", 10)
	v.SetDefault("review.max_file_bytes", int64(128*1024))
	v.SetDefault("review.default_focus", "correctness, naming, and error handling")
	v.SetDefault("review.exclude_patterns", []string{"vendor", "node_modules", "testdata", "*_generated.go"})

	v.SetDefault("discovery.max_files", 200)
	v.SetDefault("discovery.extensions", []string{"go", "rb", "py", "js", "ts", "md", "yaml", "yml"})

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.dir", "")
}
