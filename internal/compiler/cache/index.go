package cache

import (
	"sync"
	"time"
)

// Entry records the artifact key last built for a plan path
type Entry struct {
	Path     string
	Key      string
	CachedAt time.Time
}

// Index maps plan paths to their current artifact key, so an edited plan
// can drop the artifact of its previous content
type Index struct {
	entries map[string]Entry
	mu      sync.RWMutex
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{entries: make(map[string]Entry)}
}

// Get returns the entry for path
func (ix *Index) Get(path string) (Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	e, ok := ix.entries[path]
	return e, ok
}

// Set records key as the current artifact of path
func (ix *Index) Set(path, key string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.entries[path] = Entry{Path: path, Key: key, CachedAt: time.Now()}
}

// Invalidate forgets path and returns the key it pointed at
func (ix *Index) Invalidate(path string) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	e, ok := ix.entries[path]
	delete(ix.entries, path)
	return e.Key, ok
}

// InvalidateAll clears the index
func (ix *Index) InvalidateAll() {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.entries = make(map[string]Entry)
}

func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return len(ix.entries)
}

// Prune removes entries older than maxAge and returns their keys
func (ix *Index) Prune(maxAge time.Duration) []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	now := time.Now()
	var pruned []string
	for path, e := range ix.entries {
		if now.Sub(e.CachedAt) > maxAge {
			delete(ix.entries, path)
			pruned = append(pruned, e.Key)
		}
	}
	return pruned
}
