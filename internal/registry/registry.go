package registry

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ShayCichocki/valet/internal/config"
)

// Match is one query result with its distance from the query text.
type Match struct {
	Entry    SolutionEntry
	Distance float64
}

// Registry stores solutions as files in a directory and serves similarity
// queries through a derived index. All methods are safe for concurrent use.
type Registry struct {
	dir   string
	index *Index

	mu      sync.RWMutex
	entries map[string]SolutionEntry
}

// Open loads every solution file under cfg.Dir and builds the index at
// cfg.IndexPath. Index trouble is downgraded to a warning; the registry
// still works, returning no query results until the index recovers.
func Open(cfg config.RegistryConfig) (*Registry, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create solutions directory: %w", err)
	}

	r := &Registry{dir: cfg.Dir, entries: make(map[string]SolutionEntry)}

	index, err := OpenIndex(cfg.IndexPath)
	if err != nil {
		log.Printf("[registry] index unavailable, queries will return nothing: %v", err)
	} else {
		r.index = index
	}

	if err := r.reloadAll(); err != nil {
		return nil, err
	}
	return r, nil
}

// Close releases the index database.
func (r *Registry) Close() error {
	if r.index == nil {
		return nil
	}
	return r.index.Close()
}

// Dir returns the backing directory.
func (r *Registry) Dir() string {
	return r.dir
}

// reloadAll reads every solution file and rebuilds the index from them.
func (r *Registry) reloadAll() error {
	names, err := filepath.Glob(filepath.Join(r.dir, "*.md"))
	if err != nil {
		return fmt.Errorf("list solutions: %w", err)
	}

	entries := make(map[string]SolutionEntry, len(names))
	for _, path := range names {
		entry, err := loadFile(path)
		if err != nil {
			log.Printf("[registry] skipping %s: %v", filepath.Base(path), err)
			continue
		}
		entries[entry.Name] = entry
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()

	if r.index != nil {
		all := make([]SolutionEntry, 0, len(entries))
		for _, e := range entries {
			all = append(all, e)
		}
		if err := r.index.Rebuild(all); err != nil {
			log.Printf("[registry] index rebuild failed: %v", err)
		}
	}
	log.Printf("[registry] loaded %d solutions from %s", len(entries), r.dir)
	return nil
}

func loadFile(path string) (SolutionEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SolutionEntry{}, err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	entry, err := ParseSolution(data, base)
	if err != nil {
		return SolutionEntry{}, err
	}
	entry.path = path
	return entry, nil
}

// Save upserts an entry by name: the file is written and the index updated.
// Saving an existing name replaces it in place and bumps its version.
func (r *Registry) Save(name, code, description string) error {
	now := time.Now().UTC()
	entry := SolutionEntry{
		Name:        name,
		Description: description,
		Code:        code,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	entry.path = r.path(name)
	r.mu.Lock()
	if prev, ok := r.entries[name]; ok {
		entry.Version = prev.Version + 1
		entry.CreatedAt = prev.CreatedAt
		if prev.path != "" {
			entry.path = prev.path
		}
	}
	r.entries[name] = entry
	r.mu.Unlock()

	data, err := entry.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(entry.path, data, 0644); err != nil {
		return fmt.Errorf("write solution %s: %w", name, err)
	}

	if r.index != nil {
		if err := r.index.Upsert(name, description); err != nil {
			log.Printf("[registry] index update failed for %s: %v", name, err)
		}
	}
	return nil
}

// Delete removes an entry and its file.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	file := r.path(name)
	if entry, ok := r.entries[name]; ok && entry.path != "" {
		file = entry.path
	}
	delete(r.entries, name)
	r.mu.Unlock()

	if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove solution %s: %w", name, err)
	}
	if r.index != nil {
		if err := r.index.Remove(name); err != nil {
			log.Printf("[registry] index remove failed for %s: %v", name, err)
		}
	}
	return nil
}

// Get returns one entry by name.
func (r *Registry) Get(name string) (SolutionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	return entry, ok
}

// List returns all entries sorted by name.
func (r *Registry) List() []SolutionEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SolutionEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Query returns up to n entries whose descriptions fall within
// maxDistance of the text, nearest first. Index failures degrade to an
// empty result after one rebuild attempt.
func (r *Registry) Query(text string, n int, maxDistance float64) []Match {
	if r.index == nil || n <= 0 {
		return nil
	}

	hits, err := r.index.query(text, n, maxDistance)
	if err != nil {
		log.Printf("[registry] query failed, rebuilding index: %v", err)
		r.mu.RLock()
		all := make([]SolutionEntry, 0, len(r.entries))
		for _, e := range r.entries {
			all = append(all, e)
		}
		r.mu.RUnlock()
		if err := r.index.Rebuild(all); err != nil {
			log.Printf("[registry] rebuild failed: %v", err)
			return nil
		}
		if hits, err = r.index.query(text, n, maxDistance); err != nil {
			return nil
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Match, 0, len(hits))
	for _, h := range hits {
		if entry, ok := r.entries[h.name]; ok {
			out = append(out, Match{Entry: entry, Distance: h.distance})
		}
	}
	return out
}

func (r *Registry) path(name string) string {
	return filepath.Join(r.dir, name+".md")
}
