package assembler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"repolens/internal/llm"
	"repolens/internal/walker"
)

// maxSelected caps how many discovered files one question may pull in.
const maxSelected = 5

var discoverySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"files": {
			"type": "array",
			"items": {"type": "string"}
		}
	},
	"required": ["files"]
}`)

const discoveryPrompt = `You are helping answer a question about a source repository. Below is a list of file paths in the repository. Pick up to %d files whose contents are most likely needed to answer the question. Only pick from the list; return an empty array if none look relevant.

Question: %s

Files:
%s`

// SelectorConfig bounds the repository scan presented to the LLM.
type SelectorConfig struct {
	Model      string
	MaxFiles   int
	Extensions []string
	Excludes   []string
}

// Selector asks the LLM which repository files are relevant to a question.
type Selector struct {
	client llm.Client
	root   string
	cfg    SelectorConfig
	log    *slog.Logger
}

// NewSelector creates a Selector scanning the repository at root.
func NewSelector(client llm.Client, root string, cfg SelectorConfig, log *slog.Logger) *Selector {
	if log == nil {
		log = slog.Default()
	}
	return &Selector{
		client: client,
		root:   root,
		cfg:    cfg,
		log:    log.With("component", "discovery"),
	}
}

// Select enumerates candidate paths and returns the LLM's chosen subset,
// filtered back against the candidate list. Any failure (scan, transport,
// parse) degrades to no additional files. A non-positive remaining budget
// skips the LLM call entirely.
func (s *Selector) Select(ctx context.Context, question string, remainingBudget int) []string {
	if remainingBudget <= 0 {
		return nil
	}

	files, err := walker.List(s.root, walker.Options{
		Extensions: s.cfg.Extensions,
		Excludes:   s.cfg.Excludes,
		MaxFiles:   s.cfg.MaxFiles,
	})
	if err != nil {
		s.log.Warn("discovery scan failed", "error", err)
		return nil
	}
	if len(files) == 0 {
		return nil
	}

	known := make(map[string]bool, len(files))
	var list strings.Builder
	for _, f := range files {
		known[f.RelPath] = true
		list.WriteString(f.RelPath)
		list.WriteByte('\n')
	}

	doc, err := s.client.Generate(ctx, llm.GenerateRequest{
		Model:  s.cfg.Model,
		Prompt: fmt.Sprintf(discoveryPrompt, maxSelected, question, list.String()),
		Schema: discoverySchema,
	})
	if err != nil {
		s.log.Warn("discovery selection failed", "error", err)
		return nil
	}

	var result struct {
		Files []string `json:"files"`
	}
	if err := json.Unmarshal(doc, &result); err != nil {
		s.log.Warn("discovery response malformed", "error", err)
		return nil
	}

	var selected []string
	for _, f := range result.Files {
		f = strings.TrimSpace(f)
		if known[f] {
			selected = append(selected, f)
		}
		if len(selected) >= maxSelected {
			break
		}
	}
	return selected
}
