package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/ShayCichocki/valet/internal/textindex"
)

// Index is the derived nearest-neighbor cache over solution descriptions.
// Every operation tolerates a broken database; the worst outcome of index
// trouble is an empty query result.
type Index struct {
	mu sync.Mutex
	db *sql.DB
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS solutions (
	name        TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	vec         BLOB NOT NULL
);
`

// OpenIndex opens the index database, recreating it from scratch when the
// existing file is unusable.
func OpenIndex(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := openIndexDB(path)
	if err != nil {
		// A corrupt cache is disposable. Start over.
		os.Remove(path)
		db, err = openIndexDB(path)
		if err != nil {
			return nil, fmt.Errorf("recreate index: %w", err)
		}
	}
	return &Index{db: db}, nil
}

func openIndexDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying database.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.db.Close()
}

// Upsert records or replaces one entry's search vector.
func (ix *Index) Upsert(name, description string) error {
	vec, err := json.Marshal(textindex.Vectorize(description))
	if err != nil {
		return fmt.Errorf("marshal vector: %w", err)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, err = ix.db.Exec(
		`INSERT INTO solutions (name, description, vec) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET description=excluded.description, vec=excluded.vec`,
		name, description, vec)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}
	return nil
}

// Remove drops one entry from the index.
func (ix *Index) Remove(name string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, err := ix.db.Exec(`DELETE FROM solutions WHERE name = ?`, name); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Rebuild replaces the whole index with the given entries.
func (ix *Index) Rebuild(entries []SolutionEntry) error {
	ix.mu.Lock()
	if _, err := ix.db.Exec(`DELETE FROM solutions`); err != nil {
		ix.mu.Unlock()
		return fmt.Errorf("clear index: %w", err)
	}
	ix.mu.Unlock()

	for _, e := range entries {
		if err := ix.Upsert(e.Name, e.Description); err != nil {
			return err
		}
	}
	return nil
}

// hit is one scored index row.
type hit struct {
	name     string
	distance float64
}

// query returns up to n entry names within maxDistance of the text,
// ascending by distance.
func (ix *Index) query(text string, n int, maxDistance float64) ([]hit, error) {
	qv := textindex.Vectorize(text)

	ix.mu.Lock()
	rows, err := ix.db.Query(`SELECT name, vec FROM solutions`)
	ix.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("scan index: %w", err)
	}
	defer rows.Close()

	var hits []hit
	for rows.Next() {
		var (
			name   string
			vecRaw []byte
		)
		if err := rows.Scan(&name, &vecRaw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal(vecRaw, &vec); err != nil {
			continue
		}
		d := textindex.CosineDistance(qv, vec)
		if d <= maxDistance {
			hits = append(hits, hit{name: name, distance: d})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan index: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })
	if len(hits) > n {
		hits = hits[:n]
	}
	return hits, nil
}
