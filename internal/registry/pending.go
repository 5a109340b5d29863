package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Pending solution lifecycle states.
const (
	StatusPending   = "pending"
	StatusVerifying = "verifying"
	StatusVerified  = "verified"
	StatusFailed    = "failed"
)

// PendingSolution is a candidate awaiting verification before promotion
// into the registry proper. Each lives as one JSON file under the pending
// directory, keyed by id.
type PendingSolution struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	Notes       string    `json:"notes"`
}

// PendingStore manages the pending-solution directory.
type PendingStore struct {
	dir string
}

// NewPendingStore creates the directory if needed.
func NewPendingStore(dir string) (*PendingStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create pending directory: %w", err)
	}
	return &PendingStore{dir: dir}, nil
}

// Create persists a new pending solution with a generated id.
func (p *PendingStore) Create(name, code, description string) (PendingSolution, error) {
	ps := PendingSolution{
		ID:          uuid.New().String(),
		Name:        name,
		Code:        code,
		Description: description,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := p.write(ps); err != nil {
		return PendingSolution{}, err
	}
	return ps, nil
}

// Get loads one pending solution by id.
func (p *PendingStore) Get(id string) (PendingSolution, error) {
	data, err := os.ReadFile(p.path(id))
	if err != nil {
		return PendingSolution{}, fmt.Errorf("read pending %s: %w", id, err)
	}
	var ps PendingSolution
	if err := json.Unmarshal(data, &ps); err != nil {
		return PendingSolution{}, fmt.Errorf("parse pending %s: %w", id, err)
	}
	return ps, nil
}

// Update overwrites an existing pending solution.
func (p *PendingStore) Update(ps PendingSolution) error {
	if ps.ID == "" {
		return fmt.Errorf("pending solution has no id")
	}
	return p.write(ps)
}

// Delete removes a pending solution. Missing files are not an error; the
// job runner and a CLI approval can race on the same id.
func (p *PendingStore) Delete(id string) error {
	if err := os.Remove(p.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete pending %s: %w", id, err)
	}
	return nil
}

// List returns all pending solutions, oldest first.
func (p *PendingStore) List() ([]PendingSolution, error) {
	paths, err := filepath.Glob(filepath.Join(p.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	out := make([]PendingSolution, 0, len(paths))
	for _, path := range paths {
		id := strings.TrimSuffix(filepath.Base(path), ".json")
		ps, err := p.Get(id)
		if err != nil {
			continue
		}
		out = append(out, ps)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (p *PendingStore) write(ps PendingSolution) error {
	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pending %s: %w", ps.ID, err)
	}
	if err := os.WriteFile(p.path(ps.ID), data, 0644); err != nil {
		return fmt.Errorf("write pending %s: %w", ps.ID, err)
	}
	return nil
}

func (p *PendingStore) path(id string) string {
	return filepath.Join(p.dir, id+".json")
}
