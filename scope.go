package story

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/goliatone/go-story/layering"
	"github.com/goliatone/go-story/model"
	"github.com/goliatone/go-story/pkg/activity"
	"github.com/goliatone/go-story/scribe"
)

// AfterImagineFunc runs for a character once its whole batch persisted.
type AfterImagineFunc func(ctx context.Context, e *model.Entity) error

// batch collects every character built by one Imagine call, nested
// association builds included, with the alias chain each was built for.
type batch struct {
	members []*model.Entity
	chains  map[*model.Entity][]string
}

// Scope is one node of a story chain. Lookups of current characters, fills
// and aliases fall through to the parent scope; current characters read from
// the parent are memorized first so the scope can put them back on close.
//
// A Scope belongs to the goroutine that owns its chain. Scopes compare by
// pointer.
type Scope struct {
	rt     *Runtime
	parent *Scope
	scribe *scribe.Scribe

	current *layering.Table[*model.Entity]
	fills   *layering.Table[[]Attr]
	aliases *layering.Table[string]

	counters     map[string]int
	built        []*model.Entity
	batch        *batch
	afterImagine map[string]AfterImagineFunc
	filling      []string
}

func newScope(rt *Runtime, parent *Scope) *Scope {
	s := &Scope{
		rt:           rt,
		parent:       parent,
		scribe:       scribe.New(),
		afterImagine: map[string]AfterImagineFunc{},
	}
	if parent == nil {
		s.current = layering.NewTable[*model.Entity](nil, nil)
		s.fills = layering.NewTable[[]Attr](nil, nil)
		s.aliases = layering.NewTable[string](nil, nil)
		s.counters = map[string]int{}
		return s
	}
	s.current = layering.NewTable(parent.current, s.scribe.Memorize)
	s.fills = layering.NewTable(parent.fills, nil)
	s.aliases = layering.NewTable(parent.aliases, nil)
	s.counters = maps.Clone(parent.counters)
	return s
}

// Parent returns the enclosing scope, nil for the root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Runtime returns the runtime the scope belongs to.
func (s *Scope) Runtime() *Runtime {
	return s.rt
}

// Current returns the current character for key in this chain, or nil.
func (s *Scope) Current(key string) *model.Entity {
	return s.current.Get(s.key(key))
}

// Get returns the current character for key, imagining one when there is
// none.
func (s *Scope) Get(ctx context.Context, key string) (*model.Entity, error) {
	if e := s.Current(key); e != nil {
		return e, nil
	}
	return s.Imagine(ctx, key)
}

// Imagine builds a character for key (a kind or an alias), saves it with
// every character built along the way and runs the after-imagine callbacks.
// The new character becomes current for key and every alias it refines.
func (s *Scope) Imagine(ctx context.Context, key string, attrs ...Attr) (*model.Entity, error) {
	if err := s.writable("imagine"); err != nil {
		return nil, err
	}
	key = s.key(key)

	prev := s.batch
	s.batch = &batch{chains: map[*model.Entity][]string{}}
	defer func(b *batch) {
		s.built = append(s.built, b.members...)
		s.batch = prev
	}(s.batch)

	b, err := s.newBuilder(ctx, key)
	if err != nil {
		return nil, err
	}
	current := s.batch
	return b.build(attrs, func(e *model.Entity) error {
		return s.persist(ctx, key, e, current)
	})
}

// persist saves e and checks every batch member made it: stores drop
// invalid belongs_to parents without failing the save.
func (s *Scope) persist(ctx context.Context, key string, e *model.Entity, b *batch) error {
	if err := s.rt.store.Save(ctx, e); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			offender := verr.Entity
			if offender == nil {
				offender = e
			}
			return &ValidationFailure{Entity: offender, Fields: verr.Fields(), Err: err}
		}
		return fmt.Errorf("story: save %s: %w", e, err)
	}
	for _, member := range b.members {
		if !member.Persisted() {
			return &ValidationFailure{Entity: member, Fields: s.rt.store.Validate(ctx, member)}
		}
	}
	s.rt.log(ctx, activity.VerbSaving, key, e)
	return s.handleCallbacks(ctx, b)
}

// handleCallbacks runs ancestors' callbacks first; for one character the
// most derived alias runs first.
func (s *Scope) handleCallbacks(ctx context.Context, b *batch) error {
	if s.parent != nil {
		if err := s.parent.handleCallbacks(ctx, b); err != nil {
			return err
		}
	}
	if len(s.afterImagine) == 0 {
		return nil
	}
	for _, e := range b.members {
		chain := b.chains[e]
		for i := len(chain) - 1; i >= 0; i-- {
			fn := s.afterImagine[chain[i]]
			if fn == nil {
				continue
			}
			if err := fn(ctx, e); err != nil {
				return fmt.Errorf("story: after imagine %s: %w", chain[i], err)
			}
		}
	}
	return nil
}

// With makes overrides the current characters while fn runs and restores
// the previous ones afterwards, whatever fn returns.
func (s *Scope) With(overrides map[string]*model.Entity, fn func(*Scope) error) error {
	if err := s.writable("with"); err != nil {
		return err
	}
	type saved struct {
		key   string
		value *model.Entity
		found bool
	}
	names := slices.Sorted(maps.Keys(overrides))
	prev := make([]saved, 0, len(names))
	for _, name := range names {
		key := s.key(name)
		value, found := s.current.Lookup(key)
		prev = append(prev, saved{key: key, value: value, found: found})
	}
	for _, name := range names {
		s.current.Set(s.key(name), overrides[name])
	}
	defer func() {
		for i := len(prev) - 1; i >= 0; i-- {
			p := prev[i]
			if p.found {
				s.current.Set(p.key, p.value)
			} else {
				s.current.Delete(p.key)
			}
		}
	}()
	if fn == nil {
		return nil
	}
	return fn(s)
}

// Fill registers default attributes for alias in this scope. An alias
// without a model refines the alias currently being filled. When body is
// given it runs with alias as the active fill, so nested Fill and
// AfterImagine calls apply to it.
func (s *Scope) Fill(alias string, attrs []Attr, body func(*Scope) error) error {
	if err := s.writable("fill"); err != nil {
		return err
	}
	key := s.key(alias)
	if s.fills.HasLocal(key) {
		return &RedefinitionError{Key: key}
	}
	if err := s.rt.compile(key, attrs); err != nil {
		return err
	}
	if _, ok := s.rt.models.Lookup(key); !ok {
		parent := s.currentFill()
		if parent == "" {
			return usageError("fill", key, "no model of that kind and not inside a fill")
		}
		s.aliases.Set(key, parent)
	}
	s.fills.Set(key, cloneAttrs(attrs))
	if body == nil {
		return nil
	}
	s.filling = append(s.filling, key)
	defer func() {
		s.filling = s.filling[:len(s.filling)-1]
	}()
	return body(s)
}

// AfterImagine registers fn for characters of the fill being defined.
func (s *Scope) AfterImagine(fn AfterImagineFunc) error {
	if err := s.writable("after_imagine"); err != nil {
		return err
	}
	name := s.currentFill()
	if name == "" {
		return usageError("after_imagine", "", "must be called inside a fill body")
	}
	s.afterImagine[name] = fn
	return nil
}

// Built returns the characters built directly in this scope, in build order.
func (s *Scope) Built() []*model.Entity {
	return slices.Clone(s.built)
}

// Seq returns the last sequence number drawn for kind.
func (s *Scope) Seq(kind string) int {
	return s.counters[s.key(kind)]
}

func (s *Scope) key(key string) string {
	return s.rt.models.Normalize(key)
}

func (s *Scope) writable(op string) error {
	if s.parent == nil && s.rt.frozen.Load() {
		return usageError(op, "", "root scope is read-only once a chain has opened a scope")
	}
	return nil
}

func (s *Scope) currentFill() string {
	if n := len(s.filling); n > 0 {
		return s.filling[n-1]
	}
	return ""
}

func (s *Scope) nextSeq(kind string) int {
	s.counters[kind]++
	return s.counters[kind]
}

func (s *Scope) building(e *model.Entity, chain []string) {
	if s.batch == nil {
		return
	}
	s.batch.members = append(s.batch.members, e)
	s.batch.chains[e] = chain
}

// aliasChain walks the alias table from key up to its model kind and
// returns the names root first.
func (s *Scope) aliasChain(key string) ([]string, error) {
	chain := []string{key}
	seen := map[string]bool{key: true}
	for {
		parent, ok := s.aliases.Lookup(chain[0])
		if !ok || parent == "" {
			return chain, nil
		}
		if seen[parent] {
			return nil, usageError("imagine", key, "alias cycle through %s", parent)
		}
		seen[parent] = true
		chain = append([]string{parent}, chain...)
	}
}
