package model

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Slot is the loaded content of one relation: One for to-one relations,
// Many for to-many relations.
type Slot struct {
	One  *Entity
	Many []*Entity
}

// Present reports whether the slot holds at least one entity.
func (s Slot) Present() bool {
	return s.One != nil || len(s.Many) > 0
}

// Entity is one instance of a Model. Entities are compared by pointer: two
// entities with equal attributes are still different characters. Methods are
// safe for concurrent use.
type Entity struct {
	mu        sync.RWMutex
	model     *Model
	id        string
	persisted bool
	attrs     map[string]any
	slots     map[string]Slot
}

// New instantiates a transient entity of m.
func New(m *Model) *Entity {
	return &Entity{
		model: m,
		attrs: map[string]any{},
		slots: map[string]Slot{},
	}
}

// Model returns the descriptor the entity was built from.
func (e *Entity) Model() *Model { return e.model }

// Kind returns the entity's model kind.
func (e *Entity) Kind() string {
	if e == nil || e.model == nil {
		return ""
	}
	return e.model.Kind
}

// ID returns the store-assigned identifier, empty until persisted.
func (e *Entity) ID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.id
}

// Persisted reports whether a store has saved the entity and not deleted it.
func (e *Entity) Persisted() bool {
	if e == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.persisted
}

// MarkPersisted is called by stores once the entity has been saved.
func (e *Entity) MarkPersisted(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.id = id
	e.persisted = true
}

// MarkDeleted is called by stores once the entity has been removed.
func (e *Entity) MarkDeleted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persisted = false
}

// Get returns the attribute value for name.
func (e *Entity) Get(name string) any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.attrs[name]
}

// Set assigns a plain attribute.
func (e *Entity) Set(name string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
}

// Attributes returns a shallow copy of the attribute map.
func (e *Entity) Attributes() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.attrs)
}

// ReplaceAttributes swaps the whole attribute map.
func (e *Entity) ReplaceAttributes(attrs map[string]any) {
	if attrs == nil {
		attrs = map[string]any{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs = attrs
}

// Loaded reports whether the relation slot has been assigned.
func (e *Entity) Loaded(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.slots[name]
	return ok
}

// One returns the to-one relation target, or nil.
func (e *Entity) One(name string) *Entity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.slots[name].One
}

// Many returns a copy of the to-many relation targets.
func (e *Entity) Many(name string) []*Entity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.slots[name].Many)
}

// Present reports whether an attribute is non-blank or a relation slot holds
// at least one entity.
func (e *Entity) Present(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, ok := e.model.Relation(name); ok {
		return e.slots[name].Present()
	}
	return !blank(e.attrs[name])
}

// SetOne assigns a to-one relation and links target back to e when the
// relation declares an inverse.
func (e *Entity) SetOne(name string, target *Entity) {
	e.mu.Lock()
	e.slots[name] = Slot{One: target}
	e.mu.Unlock()
	if target != nil {
		e.linkBack(name, target)
	}
}

// SetMany assigns a to-many relation and links every target back to e.
func (e *Entity) SetMany(name string, targets []*Entity) {
	kept := make([]*Entity, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			kept = append(kept, t)
		}
	}
	e.mu.Lock()
	e.slots[name] = Slot{Many: kept}
	e.mu.Unlock()
	for _, t := range kept {
		e.linkBack(name, t)
	}
}

// Append adds target to a to-many relation.
func (e *Entity) Append(name string, target *Entity) {
	if target == nil {
		return
	}
	e.mu.Lock()
	slot := e.slots[name]
	slot.Many = append(slot.Many, target)
	e.slots[name] = slot
	e.mu.Unlock()
	e.linkBack(name, target)
}

// Slots returns a copy of every loaded relation slot.
func (e *Entity) Slots() map[string]Slot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]Slot, len(e.slots))
	for name, slot := range e.slots {
		out[name] = Slot{One: slot.One, Many: slices.Clone(slot.Many)}
	}
	return out
}

// ReplaceSlots swaps the whole relation cache without touching inverses.
func (e *Entity) ReplaceSlots(slots map[string]Slot) {
	if slots == nil {
		slots = map[string]Slot{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.slots = slots
}

// Link points the named slot of e at owner without propagating further. For
// to-many slots owner is appended once.
func (e *Entity) Link(name string, owner *Entity) {
	rel, ok := e.model.Relation(name)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !rel.Kind.Many() {
		e.slots[name] = Slot{One: owner}
		return
	}
	slot := e.slots[name]
	if slices.Contains(slot.Many, owner) {
		return
	}
	slot.Many = append(slot.Many, owner)
	e.slots[name] = slot
}

func (e *Entity) linkBack(name string, target *Entity) {
	rel, ok := e.model.Relation(name)
	if !ok {
		return
	}
	inverse := rel.InverseKey(e.Kind())
	if inverse == "" {
		return
	}
	target.Link(inverse, e)
}

func (e *Entity) String() string {
	if e == nil {
		return "<nil>"
	}
	if id := e.ID(); id != "" {
		return fmt.Sprintf("%s#%s", e.Kind(), id)
	}
	return fmt.Sprintf("%s(new)", e.Kind())
}
