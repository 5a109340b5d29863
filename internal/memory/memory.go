// Package memory provides long-term memory for the assistant: short facts
// captured from conversations, recalled by lexical similarity. Recall
// failures never surface to callers as errors; a broken memory store
// degrades to an assistant with no recollection.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ShayCichocki/valet/internal/textindex"
)

// Snippet is one recalled memory with its similarity distance to the query.
// Lower distance means more relevant.
type Snippet struct {
	ID       string
	Text     string
	Metadata map[string]string
	Distance float64
	AddedAt  time.Time
}

// Store is the memory boundary used by the pipeline.
type Store interface {
	// Add persists one memory with optional metadata.
	Add(ctx context.Context, text string, metadata map[string]string) error
	// Search returns up to topK memories ranked by ascending distance.
	// It never returns an error; recall failures yield an empty result.
	Search(ctx context.Context, query string, topK int) []Snippet
	Close() error
}

// SQLiteStore is the default Store, backed by a local sqlite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

const memorySchema = `
CREATE TABLE IF NOT EXISTS memories (
	id         TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	vec        BLOB NOT NULL,
	created_at TEXT NOT NULL
);
`

// NewSQLiteStore opens (or creates) the memory database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec(memorySchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: conn, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Add implements Store.
func (s *SQLiteStore) Add(ctx context.Context, text string, metadata map[string]string) error {
	if text == "" {
		return nil
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	vec, err := json.Marshal(textindex.Vectorize(text))
	if err != nil {
		return fmt.Errorf("marshal vector: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, text, metadata, vec, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), text, string(meta), vec, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// Search implements Store. All vectors are scanned; at the scale of a
// personal memory store this is faster than maintaining an ANN structure.
func (s *SQLiteStore) Search(ctx context.Context, query string, topK int) []Snippet {
	if topK <= 0 {
		return nil
	}
	qv := textindex.Vectorize(query)

	s.mu.RLock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, metadata, vec, created_at FROM memories`)
	s.mu.RUnlock()
	if err != nil {
		log.Printf("[memory] search failed, returning no recollections: %v", err)
		return nil
	}
	defer rows.Close()

	var out []Snippet
	for rows.Next() {
		var (
			sn                 Snippet
			metaRaw, createdAt string
			vecRaw             []byte
		)
		if err := rows.Scan(&sn.ID, &sn.Text, &metaRaw, &vecRaw, &createdAt); err != nil {
			log.Printf("[memory] skipping unreadable row: %v", err)
			continue
		}
		var vec []float32
		if err := json.Unmarshal(vecRaw, &vec); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(metaRaw), &sn.Metadata); err != nil {
			sn.Metadata = map[string]string{}
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			sn.AddedAt = t
		}
		sn.Distance = textindex.CosineDistance(qv, vec)
		out = append(out, sn)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[memory] search scan failed: %v", err)
		return nil
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// Nop is a Store that remembers nothing. Used when memory is disabled or
// the backing database cannot be opened.
type Nop struct{}

func (Nop) Add(context.Context, string, map[string]string) error { return nil }
func (Nop) Search(context.Context, string, int) []Snippet        { return nil }
func (Nop) Close() error                                         { return nil }
