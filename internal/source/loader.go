package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"github.com/maypok86/otter"
)

// DefaultCacheCapacity bounds the number of cached units.
const DefaultCacheCapacity = 4096

// racyWindow covers filesystems with coarse mtime resolution. A file whose
// mtime falls within this window of the time it was read may have been
// rewritten without an mtime change, so its content is hashed again.
const racyWindow = 2 * time.Second

// Loader reads source files into Units. Units are cached by path and
// reused while the file's mtime and size are unchanged and the cached read
// happened well after the mtime; otherwise the content hash decides.
type Loader struct {
	cache otter.Cache[string, cachedUnit]
	now   func() time.Time
}

type cachedUnit struct {
	unit   *Unit
	size   int64
	sum    [sha256.Size]byte
	readAt time.Time
}

// settled reports whether the cached read happened long enough after the
// file's mtime that a same-size rewrite would have moved the mtime.
func (c cachedUnit) settled() bool {
	return c.readAt.Sub(c.unit.ModTime) > racyWindow
}

// NewLoader creates a Loader holding at most capacity units.
func NewLoader(capacity int) (*Loader, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	cache, err := otter.MustBuilder[string, cachedUnit](capacity).
		CollectStats().
		WithTTL(30 * time.Minute).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build source cache: %w", err)
	}
	return &Loader{cache: cache, now: time.Now}, nil
}

// Load returns the Unit for path, reading the file only when the cached copy
// is missing or stale.
func (l *Loader) Load(path string) (*Unit, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	cached, ok := l.cache.Get(path)
	fresh := ok && cached.size == info.Size() && cached.unit.ModTime.Equal(info.ModTime())
	if fresh && cached.settled() {
		return cached.unit, nil
	}

	readAt := l.now()
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	sum := sha256.Sum256(content)
	if fresh && sum == cached.sum {
		cached.readAt = readAt
		l.cache.Set(path, cached)
		return cached.unit, nil
	}

	unit := NewUnit(path, info.ModTime(), content)
	l.cache.Set(path, cachedUnit{unit: unit, size: int64(len(content)), sum: sum, readAt: readAt})
	return unit, nil
}

// Forget drops any cached unit for path.
func (l *Loader) Forget(path string) {
	l.cache.Delete(path)
}

// Hits reports cache hits since creation.
func (l *Loader) Hits() int64 {
	return l.cache.Stats().Hits()
}

// Close releases the cache.
func (l *Loader) Close() {
	l.cache.Close()
}
