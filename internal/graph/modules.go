package graph

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ModuleMap assigns a module id to every file of a batch. The id is the file
// stem; when stems collide, the first path in sorted order keeps the bare
// stem and later ones are qualified by their parent directory.
type ModuleMap struct {
	byPath   map[string]string
	byModule map[string]string
}

// NewModuleMap builds the map for paths. Input order does not matter.
func NewModuleMap(paths []string) *ModuleMap {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	m := &ModuleMap{
		byPath:   make(map[string]string, len(sorted)),
		byModule: make(map[string]string, len(sorted)),
	}
	for _, path := range sorted {
		if _, ok := m.byPath[path]; ok {
			continue
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		id := stem
		if _, taken := m.byModule[id]; taken {
			id = filepath.Base(filepath.Dir(path)) + "." + stem
		}
		for n := 2; ; n++ {
			if _, taken := m.byModule[id]; !taken {
				break
			}
			id = fmt.Sprintf("%s.%s#%d", filepath.Base(filepath.Dir(path)), stem, n)
		}
		m.byPath[path] = id
		m.byModule[id] = path
	}
	return m
}

// Module returns the module id for path, or "" when path is not in the batch.
func (m *ModuleMap) Module(path string) string {
	return m.byPath[path]
}

// Path returns the file for a module id.
func (m *ModuleMap) Path(module string) (string, bool) {
	p, ok := m.byModule[module]
	return p, ok
}

// Lookup resolves a dotted module reference such as "pkg.utils". The full
// reference is tried first, then its last segment as a bare stem.
func (m *ModuleMap) Lookup(ref string) (string, bool) {
	if p, ok := m.byModule[ref]; ok {
		return p, true
	}
	if i := strings.LastIndex(ref, "."); i >= 0 {
		return m.Path(ref[i+1:])
	}
	return "", false
}

// Len returns the number of modules.
func (m *ModuleMap) Len() int {
	return len(m.byPath)
}
