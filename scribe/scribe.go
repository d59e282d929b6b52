// Package scribe records the state of entity graphs so it can be put back
// later. A story scope memorizes every entity it borrows from a parent scope
// and restores them all when the scope closes.
package scribe

import (
	"github.com/goliatone/go-story/layering"
	"github.com/goliatone/go-story/model"
)

type memo struct {
	entity *model.Entity
	attrs  map[string]any
	slots  map[string]model.Slot
}

// Scribe is an undo log over entities. It is not safe for concurrent use; a
// scribe belongs to exactly one scope.
type Scribe struct {
	order []*memo
	seen  map[*model.Entity]*memo
}

// New returns an empty scribe.
func New() *Scribe {
	return &Scribe{seen: map[*model.Entity]*memo{}}
}

// Memorize captures e and every entity reachable through its loaded
// relation slots. Entities already captured are skipped, so cycles terminate
// and the first capture wins. It returns e for chaining.
func (s *Scribe) Memorize(e *model.Entity) *model.Entity {
	if e == nil {
		return nil
	}
	if _, ok := s.seen[e]; ok {
		return e
	}
	m := &memo{
		entity: e,
		attrs:  layering.Clone(e.Attributes()),
		slots:  e.Slots(),
	}
	s.seen[e] = m
	s.order = append(s.order, m)

	for _, slot := range m.slots {
		s.Memorize(slot.One)
		for _, related := range slot.Many {
			s.Memorize(related)
		}
	}
	return e
}

// Memorized reports whether e has been captured.
func (s *Scribe) Memorized(e *model.Entity) bool {
	_, ok := s.seen[e]
	return ok
}

// Len returns the number of captured entities.
func (s *Scribe) Len() int {
	return len(s.order)
}

// RestoreAll puts every captured entity back, in capture order: attributes
// are replaced with the captured copy, the relation slots are replaced with
// the captured slots (slots loaded afterwards disappear), and each restored
// related entity has its inverse slot pointed back at the owner. Store ids
// and persisted flags are left alone.
func (s *Scribe) RestoreAll() {
	for _, m := range s.order {
		m.restore()
	}
}

func (m *memo) restore() {
	e := m.entity
	e.ReplaceAttributes(layering.Clone(m.attrs))

	slots := make(map[string]model.Slot, len(m.slots))
	for name, slot := range m.slots {
		slots[name] = model.Slot{One: slot.One, Many: append([]*model.Entity(nil), slot.Many...)}
	}
	e.ReplaceSlots(slots)

	for name, slot := range slots {
		rel, ok := e.Model().Relation(name)
		if !ok {
			continue
		}
		inverse := rel.InverseKey(e.Kind())
		if inverse == "" || !rel.Kind.Owning() {
			continue
		}
		if slot.One != nil {
			slot.One.Link(inverse, e)
		}
		for _, related := range slot.Many {
			related.Link(inverse, e)
		}
	}
}
