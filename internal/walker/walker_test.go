package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func relPaths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestListSortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.go", "package b")
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "notes.txt", "hello")
	writeFile(t, root, "sub/c.go", "package c")

	files, err := List(root, Options{Extensions: []string{"go"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go", "sub/c.go"}, relPaths(files))
}

func TestListDefaultExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, ".git/config", "x")
	writeFile(t, root, "node_modules/pkg/index.js", "x")
	writeFile(t, root, "vendor/dep/dep.go", "package dep")
	writeFile(t, root, ".repolens/index.db", "x")

	files, err := List(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, relPaths(files))
}

func TestListExcludesMatchPathSegments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "builder.go", "package builder")
	writeFile(t, root, "distance.go", "package distance")
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "build/out.go", "package out")
	writeFile(t, root, "dist/bundle.go", "package bundle")

	// "build" and "dist" exclude those directories, not top-level files
	// that merely share the prefix.
	files, err := List(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"builder.go", "distance.go", "main.go"}, relPaths(files))
}

func TestListCustomExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", "package keep")
	writeFile(t, root, "gen_generated.go", "package gen")
	writeFile(t, root, "testdata/fixture.go", "package fixture")

	files, err := List(root, Options{Excludes: []string{"testdata", "*_generated.go"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.go"}, relPaths(files))
}

func TestListSkipsEmptyAndOversize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "empty.go", "")
	writeFile(t, root, "big.go", string(make([]byte, 100)))
	writeFile(t, root, "ok.go", "package ok")

	files, err := List(root, Options{MaxFileSize: 50})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.go"}, relPaths(files))
}

func TestListMaxFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "b.go", "package b")
	writeFile(t, root, "c.go", "package c")

	files, err := List(root, Options{MaxFiles: 2})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestListSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real.go", "package real")
	require.NoError(t, os.Symlink(filepath.Join(root, "real.go"), filepath.Join(root, "link.go")))

	files, err := List(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"real.go"}, relPaths(files))
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("vendor/dep.go", nil), "default excludes apply")
	assert.True(t, Matches("a_generated.go", []string{"*_generated.go"}))
	assert.True(t, Matches("third_party/x/y.go", []string{"third_party"}))
	assert.True(t, Matches("build/out.go", nil))
	assert.False(t, Matches("builder.go", nil), "segment prefix only")
	assert.False(t, Matches("internal/store/store.go", []string{"*_generated.go"}))
}
