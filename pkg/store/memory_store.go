package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-story/layering"
	"github.com/goliatone/go-story/model"
)

var ErrNotFound = errors.New("store: record not found")

// Record is the stored form of one entity.
type Record struct {
	ID         string
	Kind       string
	Attributes map[string]any
	Links      map[string][]string
	UpdatedAt  time.Time
}

// MemoryStore is an in-memory store intended for tests and examples. It is
// safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	graph   Graph
	now     func() time.Time
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithValidator replaces model.Validate as the validation source.
func WithValidator(fn ValidateFunc) MemoryOption {
	return func(s *MemoryStore) {
		s.graph.Validate = fn
	}
}

// WithClock sets the clock used for UpdatedAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records: map[string]Record{},
		now:     time.Now,
	}
	s.graph.Backend = s
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Save persists e and its unsaved relations.
func (s *MemoryStore) Save(ctx context.Context, e *model.Entity) error {
	return s.graph.Save(ctx, e)
}

// Delete removes e.
func (s *MemoryStore) Delete(ctx context.Context, e *model.Entity) error {
	return s.graph.Delete(ctx, e)
}

// Validate lists the names of e's invalid attributes.
func (s *MemoryStore) Validate(ctx context.Context, e *model.Entity) []string {
	return s.graph.Invalid(ctx, e)
}

// Write stores a copy of e's attributes and links.
func (s *MemoryStore) Write(_ context.Context, e *model.Entity) (string, error) {
	id := e.ID()
	if !e.Persisted() || id == "" {
		next, err := uuid.NewV7()
		if err != nil {
			return "", err
		}
		id = next.String()
	}
	record := Record{
		ID:         id,
		Kind:       e.Kind(),
		Attributes: layering.Clone(e.Attributes()),
		Links:      Links(e),
		UpdatedAt:  s.now(),
	}

	s.mu.Lock()
	s.records[id] = record
	s.mu.Unlock()
	return id, nil
}

// Remove drops the record for e.
func (s *MemoryStore) Remove(_ context.Context, e *model.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[e.ID()]; !ok {
		return ErrNotFound
	}
	delete(s.records, e.ID())
	return nil
}

// Get returns the record stored under id.
func (s *MemoryStore) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	return record, ok
}

// Count returns the number of records of kind, or of every kind when kind is
// empty.
func (s *MemoryStore) Count(kind string) int {
	return len(s.All(kind))
}

// All lists the records of kind (every kind when empty) ordered by id.
func (s *MemoryStore) All(kind string) []Record {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		if kind == "" || record.Kind == kind {
			out = append(out, record)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Links returns the ids of the persisted entities in each loaded slot of e.
func Links(e *model.Entity) map[string][]string {
	links := map[string][]string{}
	for name, slot := range e.Slots() {
		var ids []string
		if slot.One != nil && slot.One.Persisted() {
			ids = append(ids, slot.One.ID())
		}
		for _, target := range slot.Many {
			if target.Persisted() {
				ids = append(ids, target.ID())
			}
		}
		if len(ids) > 0 {
			links[name] = ids
		}
	}
	return links
}
