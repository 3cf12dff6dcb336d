// Package embedding maintains the per-repository chunk/embedding index:
// incremental builds keyed on file mtime watermarks, cosine top-K retrieval,
// and budgeted context assembly. Every LLM failure in this package degrades
// to an empty contribution; nothing here raises past the builder.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"repolens/internal/chunker"
	"repolens/internal/llm"
	"repolens/internal/store"
)

const embedBatchSize = 32

// Config holds the builder's resolved settings.
type Config struct {
	Model          string
	ChunkSize      int
	ChunkOverlap   int
	MaxPerFile     int
	MaxTotalChunks int
	MinQuestionLen int
	TopK           int

	// OnProgress, when set, is called after each file during Build.
	OnProgress func(done, total int)
}

// Builder constructs and queries embedding indexes.
type Builder struct {
	store  store.VectorStore
	client llm.Client
	cfg    Config
	log    *slog.Logger
}

// NewBuilder creates a Builder over the given store and LLM client.
func NewBuilder(st store.VectorStore, client llm.Client, cfg Config, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{
		store:  st,
		client: client,
		cfg:    cfg,
		log:    log.With("component", "embedding"),
	}
}

const metaEmbeddingModel = "embedding_model"

// syncModelWatermark wipes the store when the embedding model changed since
// the last build; vectors from different models are not comparable.
func (b *Builder) syncModelWatermark() error {
	last, err := b.store.GetMeta(metaEmbeddingModel)
	if err != nil {
		return fmt.Errorf("get meta: %w", err)
	}
	if last != "" && last != b.cfg.Model {
		b.log.Info("embedding model changed, re-indexing", "from", last, "to", b.cfg.Model)
		if err := b.store.DeleteAll(); err != nil {
			return fmt.Errorf("delete all chunks: %w", err)
		}
	}
	return b.store.SetMeta(metaEmbeddingModel, b.cfg.Model)
}

// Build assembles an in-memory index for the given relative paths under root.
// A path whose stored mtime matches the file's current mtime reuses its
// persisted chunks, unless the stored chunk set is empty, which marks a
// previously failed embed and forces a retry. Changed or new paths are
// re-chunked, re-embedded, and upserted wholesale.
func (b *Builder) Build(ctx context.Context, root string, paths []string) (*Index, error) {
	if err := b.syncModelWatermark(); err != nil {
		return nil, err
	}

	cc := chunker.Chunker{
		Size:       b.cfg.ChunkSize,
		Overlap:    b.cfg.ChunkOverlap,
		MaxPerFile: b.cfg.MaxPerFile,
	}

	var entries []Entry
	for n, rel := range paths {
		if b.cfg.MaxTotalChunks > 0 && len(entries) >= b.cfg.MaxTotalChunks {
			b.log.Debug("total chunk cap reached", "cap", b.cfg.MaxTotalChunks)
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		updated, err := b.indexFile(ctx, root, rel, cc, entries)
		if err != nil {
			return nil, err
		}
		entries = updated
		if b.cfg.OnProgress != nil {
			b.cfg.OnProgress(n+1, len(paths))
		}
	}

	return NewIndex(entries), nil
}

// indexFile folds one file into entries, reusing stored chunks when the mtime
// watermark matches and re-embedding otherwise. Unreadable files and embed
// failures are skipped; store errors abort the build.
func (b *Builder) indexFile(ctx context.Context, root, rel string, cc chunker.Chunker, entries []Entry) ([]Entry, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		b.log.Warn("skipping unreadable file", "path", rel, "error", err)
		return entries, nil
	}
	mtime := info.ModTime().Unix()

	stored, ok, err := b.store.StoredMtime(rel)
	if err != nil {
		return nil, fmt.Errorf("stored mtime for %s: %w", rel, err)
	}
	if ok && stored == mtime {
		chunks, err := b.store.FindChunks(rel)
		if err != nil {
			return nil, fmt.Errorf("find chunks for %s: %w", rel, err)
		}
		if len(chunks) > 0 {
			return appendChunks(entries, chunks, b.cfg.MaxTotalChunks), nil
		}
		// Equal mtime but nothing stored: a prior embed failed before
		// persisting, so fall through and re-embed.
	}

	src, err := os.ReadFile(abs)
	if err != nil {
		b.log.Warn("skipping unreadable file", "path", rel, "error", err)
		return entries, nil
	}

	texts := cc.Split(string(src))
	if remaining := b.cfg.MaxTotalChunks - len(entries); b.cfg.MaxTotalChunks > 0 && len(texts) > remaining {
		texts = texts[:remaining]
	}
	if len(texts) == 0 {
		return entries, nil
	}

	vectors, err := b.embedBatches(ctx, texts)
	if err != nil {
		b.log.Warn("embedding failed, skipping file", "path", rel, "error", err)
		return entries, nil
	}

	chunks := make([]store.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = store.Chunk{
			Path:       rel,
			ChunkIndex: i,
			Text:       text,
			Embedding:  vectors[i],
		}
	}
	if err := b.store.Upsert(rel, mtime, chunks); err != nil {
		return nil, fmt.Errorf("upsert %s: %w", rel, err)
	}
	return appendChunks(entries, chunks, b.cfg.MaxTotalChunks), nil
}

// Retrieve embeds the question, ranks the index by cosine similarity, and
// emits chunk blocks in score order until the character budget is exhausted.
// A block that would overflow the budget is dropped and assembly stops. All
// failures, including embed transport errors, yield an empty string.
func (b *Builder) Retrieve(ctx context.Context, ix *Index, question string, budget int) string {
	question = strings.TrimSpace(question)
	if len(question) < b.cfg.MinQuestionLen {
		return ""
	}
	if ix == nil || ix.Len() == 0 || budget <= 0 {
		return ""
	}

	vectors, err := b.client.Embed(ctx, b.cfg.Model, []string{question})
	if err != nil || len(vectors) == 0 {
		b.log.Warn("query embedding failed", "error", err)
		return ""
	}

	var sb strings.Builder
	total := 0
	for _, hit := range ix.TopK(vectors[0], b.cfg.TopK) {
		block := fmt.Sprintf("--- %s ---\n%s\n", hit.Path, hit.Text)
		if total+len(block) > budget {
			break
		}
		sb.WriteString(block)
		total += len(block)
	}
	return sb.String()
}

// EmbedQuery embeds a single text, for callers that search the durable store
// directly.
func (b *Builder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := b.client.Embed(ctx, b.cfg.Model, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vectors[0], nil
}

// Model returns the configured embedding model name.
func (b *Builder) Model() string { return b.cfg.Model }

func (b *Builder) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := b.client.Embed(ctx, b.cfg.Model, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}
	return all, nil
}

func appendChunks(entries []Entry, chunks []store.Chunk, limit int) []Entry {
	for _, c := range chunks {
		if limit > 0 && len(entries) >= limit {
			break
		}
		entries = append(entries, Entry{
			Path:       c.Path,
			ChunkIndex: c.ChunkIndex,
			Text:       c.Text,
			Embedding:  c.Embedding,
		})
	}
	return entries
}
