// Package walker enumerates candidate repository files with bounded breadth
// and count. It backs both review candidate seeding and the discovery scan.
package walker

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// FileInfo holds metadata about a discovered source file.
type FileInfo struct {
	Path    string // absolute
	RelPath string // slash-separated, relative to the walk root
	Size    int64
}

// Options bounds a walk.
type Options struct {
	// Extensions (without dot) a file must have to be included. Empty
	// allows everything.
	Extensions []string
	// Excludes are directory/file patterns to skip: exact names, relative
	// path prefixes, or globs.
	Excludes []string
	// MaxFileSize skips larger files; zero means 1 MB.
	MaxFileSize int64
	// MaxFiles stops the walk after this many files; zero means unbounded.
	MaxFiles int
}

// defaultExcludes are always skipped in addition to Options.Excludes.
var defaultExcludes = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"__pycache__",
	".idea",
	".vscode",
	".repolens",
	"dist",
	"build",
}

const defaultMaxFileSize = 1 << 20

// List walks the tree rooted at root and returns matching files in sorted
// relative-path order, so repeated walks over an unchanged tree are
// deterministic. Unreadable entries are skipped, never fatal.
func List(root string, opts Options) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}

	allowed := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		allowed[strings.TrimPrefix(ext, ".")] = true
	}

	excludes := append([]string{}, defaultExcludes...)
	excludes = append(excludes, opts.Excludes...)

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors, keep walking
		}

		rel, _ := filepath.Rel(absRoot, path)
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if matchesExclude(d.Name(), rel, excludes) {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip symlinks.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if matchesExclude(d.Name(), rel, excludes) {
			return nil
		}

		if len(allowed) > 0 {
			ext := strings.TrimPrefix(filepath.Ext(path), ".")
			if !allowed[ext] {
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > maxSize || info.Size() == 0 {
			return nil
		}

		files = append(files, FileInfo{
			Path:    path,
			RelPath: rel,
			Size:    info.Size(),
		})
		if opts.MaxFiles > 0 && len(files) >= opts.MaxFiles {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// Matches reports whether a relative path hits any of the given patterns or
// the default excludes.
func Matches(relPath string, patterns []string) bool {
	combined := append([]string{}, defaultExcludes...)
	combined = append(combined, patterns...)
	return matchesExclude(filepath.Base(relPath), filepath.ToSlash(relPath), combined)
}

// matchesExclude checks a name or relative path against the exclude patterns.
func matchesExclude(name, relPath string, patterns []string) bool {
	for _, p := range patterns {
		// Exact directory/file name match (e.g. "node_modules", ".git").
		if name == p {
			return true
		}
		// Path segment prefix match (e.g. "third_party/vendor"). A bare
		// string prefix would also swallow siblings like "builder.go"
		// under the "build" exclude.
		if relPath == p || strings.HasPrefix(relPath, p+"/") {
			return true
		}
		// Glob match against the relative path or bare name.
		if matched, _ := filepath.Match(p, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(p, name); matched {
			return true
		}
	}
	return false
}
