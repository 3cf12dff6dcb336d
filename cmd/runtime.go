package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"repolens/internal/assembler"
	"repolens/internal/cache"
	"repolens/internal/config"
	"repolens/internal/embedding"
	"repolens/internal/llm"
	"repolens/internal/qa"
	"repolens/internal/review"
	"repolens/internal/store"
	"repolens/internal/walker"
)

// indexCache is shared across commands in this process so the TUI and MCP
// server reuse one built index per repository root.
var indexCache = embedding.NewIndexCache()

// app wires the components for one repository root.
type app struct {
	root    string
	cfg     *config.Config
	log     *slog.Logger
	store   *store.SQLiteStore
	client  *llm.Ollama
	builder *embedding.Builder
	asm     *assembler.Assembler
	qa      *qa.Service
	cache   *cache.Manager
	backend cache.Backend

	// progress receives per-file index build updates when set.
	progress func(done, total int)
}

// newApp resolves the repository root, loads config, and constructs the
// component graph. Callers must Close it.
func newApp() (*app, error) {
	root, err := filepath.Abs(flagRoot)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg)

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))

	dbPath := flagDB
	if dbPath == "" {
		dbPath = filepath.Join(root, ".repolens", "index.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open index store: %w", err)
	}

	client := llm.NewOllama(cfg.Ollama.URL, cfg.Ollama.Timeout)

	a := &app{
		root:   root,
		cfg:    cfg,
		log:    log,
		store:  st,
		client: client,
	}

	builder := embedding.NewBuilder(st, client, embedding.Config{
		Model:          cfg.Ollama.EmbedModel,
		ChunkSize:      cfg.Embedding.ChunkSize,
		ChunkOverlap:   cfg.Embedding.ChunkOverlap,
		MaxPerFile:     cfg.Embedding.MaxChunksPerFile,
		MaxTotalChunks: cfg.Embedding.MaxTotalChunks,
		MinQuestionLen: cfg.Embedding.MinQuestionLen,
		TopK:           cfg.Embedding.TopK,
		OnProgress: func(done, total int) {
			if a.progress != nil {
				a.progress(done, total)
			}
		},
	}, log)
	a.builder = builder

	retrieve := func(ctx context.Context, question string, budget int) string {
		ix, err := a.index(ctx)
		if err != nil {
			log.Warn("index build failed", "error", err)
			return ""
		}
		return builder.Retrieve(ctx, ix, question, budget)
	}

	selector := assembler.NewSelector(client, root, assembler.SelectorConfig{
		Model:      cfg.Ollama.ChatModel,
		MaxFiles:   cfg.Discovery.MaxFiles,
		Extensions: cfg.Discovery.Extensions,
		Excludes:   cfg.Review.ExcludePatterns,
	}, log)

	a.asm = assembler.New(root, assembler.Config{
		Budget:         cfg.Context.Budget,
		ReferenceFiles: cfg.Context.ReferenceFiles,
		FallbackFiles:  cfg.Context.FallbackFiles,
	}, retrieve, selector, log)

	a.backend, a.cache, err = newAnswerCache(root, cfg, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	a.qa = qa.New(a.asm, client, cfg.Ollama.ChatModel, a.cache, log)
	return a, nil
}

// index returns the (possibly cached) embedding index for this root.
func (a *app) index(ctx context.Context) (*embedding.Index, error) {
	return indexCache.Get(ctx, a.root, func(ctx context.Context) (*embedding.Index, error) {
		files, err := walker.List(a.root, walker.Options{
			Extensions:  a.cfg.Discovery.Extensions,
			Excludes:    a.cfg.Review.ExcludePatterns,
			MaxFileSize: a.cfg.Review.MaxFileBytes,
		})
		if err != nil {
			return nil, err
		}
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.RelPath
		}
		return a.builder.Build(ctx, a.root, paths)
	})
}

// newAgent constructs a review agent delivering events to sink.
func (a *app) newAgent(sink review.Sink) *review.Agent {
	planner := review.NewPlanner(a.client, a.cfg.Ollama.ChatModel, a.log)
	executor := review.NewExecutor(a.client, a.cfg.Ollama.ChatModel, a.log)
	summary := review.NewSummaryWriter(a.client, a.cfg.Ollama.ChatModel, a.log)
	return review.NewAgent(a.root, planner, executor, summary, review.AgentConfig{
		MaxIterations:   a.cfg.Review.MaxIterations,
		MaxPaths:        a.cfg.Review.MaxPaths,
		MaxFileBytes:    a.cfg.Review.MaxFileBytes,
		DefaultFocus:    a.cfg.Review.DefaultFocus,
		ExcludePatterns: a.cfg.Review.ExcludePatterns,
		Extensions:      a.cfg.Discovery.Extensions,
	}, sink, a.log)
}

func (a *app) Close() {
	if a.backend != nil {
		a.backend.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

func newAnswerCache(root string, cfg *config.Config, log *slog.Logger) (cache.Backend, *cache.Manager, error) {
	var backend cache.Backend
	if cfg.Cache.Dir != "" {
		dir := cfg.Cache.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		b, err := cache.OpenBadger(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		backend = b
	} else {
		backend = cache.NewMemoryBackend()
	}
	mgr := cache.New(backend, "repolens", cfg.Cache.TTL, cfg.Cache.Enabled, cache.WithLogger(log))
	return backend, mgr, nil
}

func applyFlagOverrides(cfg *config.Config) {
	if flagOllama != "" {
		cfg.Ollama.URL = flagOllama
	}
	if flagChatModel != "" {
		cfg.Ollama.ChatModel = flagChatModel
	}
	if flagEmbedModel != "" {
		cfg.Ollama.EmbedModel = flagEmbedModel
	}
}

func logLevel() slog.Level {
	if flagVerbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}
