package indexer

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// StateDir holds the database and config of a project and is never indexed.
const StateDir = ".codelens"

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
	// rootGlob matches root-level paths for patterns starting with "**/".
	rootGlob glob.Glob
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		cp := compiledPattern{pattern: pattern, glob: g}
		if simplified, ok := strings.CutPrefix(pattern, "**/"); ok {
			if rg, err := glob.Compile(simplified, '/'); err == nil {
				cp.rootGlob = rg
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

// FileDiscovery finds source files under a root with include and ignore globs.
type FileDiscovery struct {
	rootDir        string
	codePatterns   []compiledPattern
	ignorePatterns []compiledPattern
}

// NewFileDiscovery creates a new file discovery instance.
func NewFileDiscovery(rootDir string, codePatterns, ignorePatterns []string) (*FileDiscovery, error) {
	fd := &FileDiscovery{rootDir: rootDir}

	var err error
	if fd.codePatterns, err = compilePatterns(codePatterns); err != nil {
		return nil, err
	}
	if fd.ignorePatterns, err = compilePatterns(ignorePatterns); err != nil {
		return nil, err
	}
	return fd, nil
}

// RootDir returns the directory being searched.
func (fd *FileDiscovery) RootDir() string {
	return fd.rootDir
}

// DiscoverFiles walks the tree and returns matching files, sorted. Ignored
// directories are not descended into.
func (fd *FileDiscovery) DiscoverFiles() ([]string, error) {
	files := []string{}

	err := filepath.WalkDir(fd.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && fd.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if fd.Matches(relPath) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover files in %s: %w", fd.rootDir, err)
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether a root-relative, slash-separated path is a source
// file that should be indexed.
func (fd *FileDiscovery) Matches(relPath string) bool {
	return !fd.shouldIgnore(relPath) && matchesAnyPattern(relPath, fd.codePatterns)
}

// Rel converts an absolute or root-joined path to the slash-separated form
// used for matching. Paths outside the root are rejected.
func (fd *FileDiscovery) Rel(path string) (string, error) {
	rel, err := filepath.Rel(fd.rootDir, path)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", path, fd.rootDir)
	}
	return rel, nil
}

// shouldIgnore checks if a path matches any ignore pattern.
func (fd *FileDiscovery) shouldIgnore(relPath string) bool {
	if strings.HasPrefix(relPath, StateDir+"/") || relPath == StateDir {
		return true
	}

	if matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// "node_modules" should match pattern "node_modules/**"
	return matchesAnyPattern(relPath+"/**", fd.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
// Root-level paths also match "**/" patterns, so "**/*.py" matches both
// "main.py" and "pkg/util.py".
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	rootLevel := !strings.Contains(path, "/")
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
		if rootLevel && cp.rootGlob != nil && cp.rootGlob.Match(path) {
			return true
		}
	}
	return false
}
