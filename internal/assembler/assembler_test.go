package assembler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/llm"
)

// fakeClient returns a canned Generate document, for the discovery stage.
type fakeClient struct {
	doc json.RawMessage
	err error
}

func (f *fakeClient) Generate(context.Context, llm.GenerateRequest) (json.RawMessage, error) {
	return f.doc, f.err
}

func (f *fakeClient) Chat(context.Context, string, []llm.Message) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeClient) Embed(context.Context, string, []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestBuildReferenceFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "the readme")

	a := New(root, Config{
		Budget:         10000,
		ReferenceFiles: []string{"README.md", "missing.md"},
	}, nil, nil, nil)

	out := a.Build(context.Background(), "how does it work?")
	assert.Contains(t, out, "=== README.md ===")
	assert.Contains(t, out, "the readme")
	assert.NotContains(t, out, "missing.md")
}

func TestBuildFallbackWhenNoReferenceExists(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example")

	a := New(root, Config{
		Budget:         10000,
		ReferenceFiles: []string{"README.md"},
		FallbackFiles:  []string{"go.mod"},
	}, nil, nil, nil)

	out := a.Build(context.Background(), "question")
	assert.Contains(t, out, "=== go.mod ===")
}

func TestBuildNeverExceedsBudget(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", strings.Repeat("r", 500))
	writeFile(t, root, "big.md", strings.Repeat("b", 5000))

	budget := 600
	a := New(root, Config{
		Budget:         budget,
		ReferenceFiles: []string{"README.md", "big.md"},
	}, nil, nil, nil)

	out := a.Build(context.Background(), "question")
	assert.LessOrEqual(t, len(out), budget)
	assert.Contains(t, out, "... [truncated]")
}

func TestBuildTruncationStopsStage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", strings.Repeat("a", 300))
	writeFile(t, root, "b.md", strings.Repeat("b", 300))
	writeFile(t, root, "c.md", "never reached")

	a := New(root, Config{
		Budget:         450,
		ReferenceFiles: []string{"a.md", "b.md", "c.md"},
	}, nil, nil, nil)

	out := a.Build(context.Background(), "question")
	assert.Contains(t, out, "=== a.md ===")
	assert.Contains(t, out, "=== b.md ===")
	assert.Contains(t, out, "... [truncated]")
	assert.NotContains(t, out, "c.md")
}

func TestBuildTruncationKeepsRuneBoundary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "u.md", strings.Repeat("é", 200))

	// The header "=== u.md ===\n" is 13 bytes, so every two-byte rune
	// starts at an odd offset and this budget lands the cut mid-rune.
	a := New(root, Config{
		Budget:         37,
		ReferenceFiles: []string{"u.md"},
	}, nil, nil, nil)

	out := a.Build(context.Background(), "question")
	assert.True(t, utf8.ValidString(out), "truncation must not split a rune: %q", out)
	assert.Contains(t, out, "... [truncated]")
	assert.Contains(t, out, "é")
}

func TestBuildSkipsTruncationBelowHeaderRoom(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", strings.Repeat("a", 100))

	// Budget smaller than the header leaves no useful room at all.
	a := New(root, Config{
		Budget:         5,
		ReferenceFiles: []string{"a.md"},
	}, nil, nil, nil)

	out := a.Build(context.Background(), "question")
	assert.Empty(t, out)
}

func TestBuildRetrievalStage(t *testing.T) {
	root := t.TempDir()
	var gotBudget int
	retrieve := func(_ context.Context, question string, budget int) string {
		gotBudget = budget
		return "--- chunk.go ---\nretrieved text\n"
	}

	a := New(root, Config{Budget: 1000}, retrieve, nil, nil)
	out := a.Build(context.Background(), "question")
	assert.Contains(t, out, "retrieved text")
	assert.Equal(t, 1000, gotBudget, "retrieval sees the remaining budget")
}

func TestBuildBoostStage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "cache_manager.go", "package main // cache manager impl")

	a := New(root, Config{Budget: 10000}, nil, nil, nil)
	out := a.Build(context.Background(), "How does the CacheManager evict entries?")
	assert.Contains(t, out, "=== cache_manager.go ===")
}

func TestBuildBoostSkipsMissingFiles(t *testing.T) {
	root := t.TempDir()
	a := New(root, Config{Budget: 10000}, nil, nil, nil)
	out := a.Build(context.Background(), "What does the FooBar do?")
	assert.Empty(t, out)
}

func TestBuildDiscoveryStage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "picked.go", "package picked")
	writeFile(t, root, "other.go", "package other")

	client := &fakeClient{doc: json.RawMessage(`{"files": ["picked.go"]}`)}
	sel := NewSelector(client, root, SelectorConfig{Model: "m", MaxFiles: 50}, nil)

	a := New(root, Config{Budget: 10000}, nil, sel, nil)
	out := a.Build(context.Background(), "question")
	assert.Contains(t, out, "=== picked.go ===")
	assert.NotContains(t, out, "=== other.go ===")
}

func TestBuildDiscoveryFailureDegrades(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "readme")
	writeFile(t, root, "code.go", "package code")

	client := &fakeClient{err: errors.New("ollama down")}
	sel := NewSelector(client, root, SelectorConfig{Model: "m", MaxFiles: 50}, nil)

	a := New(root, Config{
		Budget:         10000,
		ReferenceFiles: []string{"README.md"},
	}, nil, sel, nil)

	out := a.Build(context.Background(), "question")
	assert.Contains(t, out, "readme", "earlier stages survive a discovery failure")
}

func TestBuildDeduplicatesAcrossStages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "shared.go", "package shared")

	client := &fakeClient{doc: json.RawMessage(`{"files": ["shared.go"]}`)}
	sel := NewSelector(client, root, SelectorConfig{Model: "m", MaxFiles: 50}, nil)

	a := New(root, Config{
		Budget:         10000,
		ReferenceFiles: []string{"shared.go"},
	}, nil, sel, nil)

	out := a.Build(context.Background(), "question")
	assert.Equal(t, 1, strings.Count(out, "=== shared.go ==="))
}

func TestSelectorFiltersUnknownPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real.go", "package real")

	client := &fakeClient{doc: json.RawMessage(`{"files": ["real.go", "../../etc/passwd", "made_up.go"]}`)}
	sel := NewSelector(client, root, SelectorConfig{Model: "m", MaxFiles: 50}, nil)

	got := sel.Select(context.Background(), "question", 1000)
	assert.Equal(t, []string{"real.go"}, got)
}

func TestSelectorSkipsWhenNoBudget(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real.go", "package real")

	client := &fakeClient{doc: json.RawMessage(`{"files": ["real.go"]}`)}
	sel := NewSelector(client, root, SelectorConfig{Model: "m", MaxFiles: 50}, nil)

	assert.Nil(t, sel.Select(context.Background(), "question", 0))
	assert.Nil(t, sel.Select(context.Background(), "question", -5))
}

func TestSelectorMalformedResponse(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real.go", "package real")

	client := &fakeClient{doc: json.RawMessage(`not json`)}
	sel := NewSelector(client, root, SelectorConfig{Model: "m", MaxFiles: 50}, nil)
	assert.Nil(t, sel.Select(context.Background(), "question", 1000))
}

func TestSelectorCapsSelection(t *testing.T) {
	root := t.TempDir()
	var files []string
	for i := 0; i < 8; i++ {
		rel := fmt.Sprintf("f%d.go", i)
		writeFile(t, root, rel, "package f")
		files = append(files, fmt.Sprintf("%q", rel))
	}

	client := &fakeClient{doc: json.RawMessage(`{"files": [` + strings.Join(files, ",") + `]}`)}
	sel := NewSelector(client, root, SelectorConfig{Model: "m", MaxFiles: 50}, nil)

	got := sel.Select(context.Background(), "question", 1000)
	assert.Len(t, got, 5)
}
