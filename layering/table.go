package layering

import "sort"

type entry[V any] struct {
	value V
	found bool
}

// Table is a string keyed map layered over an optional parent table.
//
// Lookups that miss locally fall through to the parent. When the table was
// built with a borrow func, the first fall-through result for a key is passed
// through borrow and cached locally (misses included), so later lookups never
// reach the parent again. Without a borrow func lookups read through on every
// call and nothing is cached.
type Table[V any] struct {
	parent *Table[V]
	borrow func(V) V
	local  map[string]entry[V]
}

// NewTable returns an empty table layered over parent (nil for a root).
func NewTable[V any](parent *Table[V], borrow func(V) V) *Table[V] {
	return &Table[V]{
		parent: parent,
		borrow: borrow,
		local:  map[string]entry[V]{},
	}
}

// Parent returns the table this one is layered over.
func (t *Table[V]) Parent() *Table[V] {
	return t.parent
}

// Lookup resolves key locally, then through the parent chain.
func (t *Table[V]) Lookup(key string) (V, bool) {
	if e, ok := t.local[key]; ok {
		return e.value, e.found
	}
	if t.parent == nil {
		var zero V
		return zero, false
	}
	value, found := t.parent.Lookup(key)
	if t.borrow == nil {
		return value, found
	}
	if found {
		value = t.borrow(value)
	}
	t.local[key] = entry[V]{value: value, found: found}
	return value, found
}

// Get is Lookup without the presence flag.
func (t *Table[V]) Get(key string) V {
	value, _ := t.Lookup(key)
	return value
}

// Set stores value locally, shadowing any parent entry.
func (t *Table[V]) Set(key string, value V) {
	t.local[key] = entry[V]{value: value, found: true}
}

// Local returns the entry held by this table only. Cached misses report
// false.
func (t *Table[V]) Local(key string) (V, bool) {
	e := t.local[key]
	return e.value, e.found
}

// HasLocal reports whether key was set (or cached) on this table.
func (t *Table[V]) HasLocal(key string) bool {
	_, ok := t.local[key]
	return ok
}

// Delete removes the local entry so lookups fall through again.
func (t *Table[V]) Delete(key string) {
	delete(t.local, key)
}

// Keys lists the keys set on this table, sorted.
func (t *Table[V]) Keys() []string {
	out := make([]string, 0, len(t.local))
	for key, e := range t.local {
		if e.found {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Depth counts the tables above this one.
func (t *Table[V]) Depth() int {
	depth := 0
	for p := t.parent; p != nil; p = p.parent {
		depth++
	}
	return depth
}
