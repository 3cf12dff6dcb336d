// Package assembler builds the context string supplied to the chat model:
// reference files, then embedding retrieval, then heuristic boost files, then
// LLM-discovered files, all under one global character budget.
package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// RetrieveFunc performs embedding retrieval for a question under a character
// budget. It never fails; degraded retrieval returns "".
type RetrieveFunc func(ctx context.Context, question string, budget int) string

// Config holds the assembler's resolved settings.
type Config struct {
	Budget         int
	ReferenceFiles []string
	FallbackFiles  []string
}

// Assembler composes budgeted context for a question.
type Assembler struct {
	root      string
	cfg       Config
	retrieve  RetrieveFunc
	discovery *Selector
	log       *slog.Logger
}

// New creates an Assembler rooted at the given repository. retrieve may be
// nil to disable the embedding stage; discovery may be nil to disable the
// LLM-discovery stage.
func New(root string, cfg Config, retrieve RetrieveFunc, discovery *Selector, log *slog.Logger) *Assembler {
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{
		root:      root,
		cfg:       cfg,
		retrieve:  retrieve,
		discovery: discovery,
		log:       log.With("component", "assembler"),
	}
}

const truncationMarker = "\n... [truncated]\n"

// assembly tracks the running state of one Build call.
type assembly struct {
	sb     strings.Builder
	total  int
	budget int
	loaded map[string]bool // absolute paths already included
}

// Build assembles context for the question. The result never exceeds the
// configured budget. Stage failures are logged and degrade to that stage
// contributing nothing.
func (a *Assembler) Build(ctx context.Context, question string) string {
	st := &assembly{budget: a.cfg.Budget, loaded: make(map[string]bool)}

	// Stage 1: reference files, with a fallback set when none of the
	// primaries exist.
	refs := a.cfg.ReferenceFiles
	if !a.anyExists(refs) {
		refs = a.cfg.FallbackFiles
	}
	for _, rel := range refs {
		if !a.appendFile(st, rel) {
			break
		}
	}

	// Stage 2: embedding retrieval against remaining capacity.
	if a.retrieve != nil {
		retrieved := a.retrieve(ctx, question, st.budget-st.total)
		st.sb.WriteString(retrieved)
		st.total += len(retrieved)
	}

	// Stage 3: boost files inferred from the question.
	for _, rel := range boostCandidates(question) {
		if _, err := os.Stat(filepath.Join(a.root, filepath.FromSlash(rel))); err != nil {
			continue
		}
		if !a.appendFile(st, rel) {
			break
		}
	}

	// Stage 4: LLM-driven discovery. Failures degrade to no extra files.
	if a.discovery != nil {
		for _, rel := range a.discovery.Select(ctx, question, st.budget-st.total) {
			if !a.appendFile(st, rel) {
				break
			}
		}
	}

	return st.sb.String()
}

// anyExists reports whether at least one of the relative paths exists.
func (a *Assembler) anyExists(rels []string) bool {
	for _, rel := range rels {
		if _, err := os.Stat(filepath.Join(a.root, filepath.FromSlash(rel))); err == nil {
			return true
		}
	}
	return false
}

// appendFile includes one file in the assembly, respecting the remaining
// budget. It returns false when the current stage should stop: either the
// budget is exhausted or the file had to be truncated to fit. A missing or
// unreadable file is skipped and the stage continues.
func (a *Assembler) appendFile(st *assembly, rel string) bool {
	abs := filepath.Join(a.root, filepath.FromSlash(rel))
	if st.loaded[abs] {
		return true
	}

	room := st.budget - st.total
	if room <= 0 {
		return false
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		a.log.Debug("skipping unreadable context file", "path", rel, "error", err)
		return true
	}

	header := fmt.Sprintf("=== %s ===\n", rel)
	block := header + string(data) + "\n"
	if len(block) > room {
		keep := room - len(truncationMarker)
		if keep <= len(header) {
			return false
		}
		// Back off to a rune boundary so the cut never splits a
		// multi-byte character.
		for keep > 0 && !utf8.RuneStart(block[keep]) {
			keep--
		}
		block = block[:keep] + truncationMarker
		st.sb.WriteString(block)
		st.total += len(block)
		st.loaded[abs] = true
		return false
	}

	st.sb.WriteString(block)
	st.total += len(block)
	st.loaded[abs] = true
	return true
}
