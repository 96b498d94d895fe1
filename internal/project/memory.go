package project

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation used for tests and
// local development without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]Project
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: make(map[string]Project),
		now:      time.Now,
	}
}

// ListProjects returns all projects ordered by created_at, newest first.
func (s *MemoryStore) ListProjects(_ context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpsertProject inserts or fully replaces the project keyed by its id.
func (s *MemoryStore) UpsertProject(_ context.Context, p Project) (*Project, error) {
	if p.ID == "" {
		return nil, ErrProjectIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.projects[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.projects[p.ID] = p

	stored := p
	return &stored, nil
}

// DeleteProject removes the project with the given id.
func (s *MemoryStore) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.projects, id)
	return nil
}

// Ensure MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)
