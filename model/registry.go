package model

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrDuplicateModel = errors.New("model: duplicate kind")
	ErrUnknownParent  = errors.New("model: unknown parent kind")
	ErrInvalidModel   = errors.New("model: invalid descriptor")
)

// Registry holds the models a story can build, keyed by kind. Type names
// resolve to kinds too ("Section::Post" -> "post").
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Model
	names  map[string]string
}

// NewRegistry returns a registry seeded with models.
func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{models: map[string]*Model{}, names: map[string]string{}}
	if err := r.RegisterAll(models...); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on error, for fixtures.
func MustRegistry(models ...*Model) *Registry {
	r, err := NewRegistry(models...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds m. A model that extends another inherits the parent's
// fields, relations and validations; the parent must already be registered.
func (r *Registry) Register(m *Model) error {
	if m == nil || m.Kind == "" {
		return fmt.Errorf("%w: missing kind", ErrInvalidModel)
	}
	for _, rel := range m.Relations {
		if rel.Name == "" {
			return fmt.Errorf("%w: %s has a relation without name", ErrInvalidModel, m.Kind)
		}
		switch rel.Kind {
		case BelongsTo, HasOne, HasMany, ManyToMany:
		default:
			return fmt.Errorf("%w: %s.%s has relation kind %q", ErrInvalidModel, m.Kind, rel.Name, rel.Kind)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.models == nil {
		r.models = map[string]*Model{}
	}
	if r.names == nil {
		r.names = map[string]string{}
	}
	if _, exists := r.models[m.Kind]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, m.Kind)
	}
	own := *m
	own.Relations = make([]Relation, len(m.Relations))
	for i, rel := range m.Relations {
		if rel.Owner == "" {
			rel.Owner = m.Kind
		}
		own.Relations[i] = rel
	}
	m = &own
	if m.Extends != "" {
		parent, ok := r.models[m.Extends]
		if !ok {
			return fmt.Errorf("%w: %s extends %s", ErrUnknownParent, m.Kind, m.Extends)
		}
		m = m.inherit(parent)
	}
	r.models[m.Kind] = m
	if m.Name != "" {
		if name := Underscore(m.Name); name != m.Kind {
			if _, taken := r.names[name]; !taken {
				r.names[name] = m.Kind
			}
		}
	}
	return nil
}

// RegisterAll registers models, ordering them so parents precede the models
// that extend them.
func (r *Registry) RegisterAll(models ...*Model) error {
	pending := append([]*Model(nil), models...)
	for len(pending) > 0 {
		var next []*Model
		progressed := false
		for _, m := range pending {
			if m != nil && m.Extends != "" && !r.has(m.Extends) && declares(pending, m.Extends) {
				next = append(next, m)
				continue
			}
			if err := r.Register(m); err != nil {
				return err
			}
			progressed = true
		}
		if !progressed {
			return fmt.Errorf("%w: %s extends %s", ErrUnknownParent, next[0].Kind, next[0].Extends)
		}
		pending = next
	}
	return nil
}

// Lookup returns the model registered for kind.
func (r *Registry) Lookup(kind string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[kind]
	return m, ok
}

// Normalize maps a character key to its canonical kind: registered kinds are
// returned as-is, a model's type name resolves to its kind, anything else is
// underscored ("BlogPost" -> "blog_post").
func (r *Registry) Normalize(key string) string {
	if r.has(key) {
		return key
	}
	name := Underscore(key)
	if r.has(name) {
		return name
	}
	r.mu.RLock()
	kind, ok := r.names[name]
	r.mu.RUnlock()
	if ok {
		return kind
	}
	return name
}

// Kinds lists the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.models))
	for kind := range r.models {
		out = append(out, kind)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) has(kind string) bool {
	_, ok := r.Lookup(kind)
	return ok
}

func declares(models []*Model, kind string) bool {
	for _, m := range models {
		if m != nil && m.Kind == kind {
			return true
		}
	}
	return false
}
