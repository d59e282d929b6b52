package story

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-story/model"
	"github.com/goliatone/go-story/pkg/activity"
)

// builder constructs one character. It registers the new entity as current
// for every name of its alias chain before touching any relation, so a
// cyclic association built in the same batch finds it instead of recursing.
type builder struct {
	ctx    context.Context
	scope  *Scope
	key    string
	chain  []string
	model  *model.Model
	entity *model.Entity
	seq    int
}

func (s *Scope) newBuilder(ctx context.Context, key string) (*builder, error) {
	chain, err := s.aliasChain(key)
	if err != nil {
		return nil, err
	}
	m, ok := s.rt.models.Lookup(chain[0])
	if !ok {
		return nil, usageError("imagine", key, "character not defined")
	}
	e := model.New(m)
	s.building(e, chain)
	for _, name := range chain {
		s.current.Set(name, e)
	}
	return &builder{
		ctx:    ctx,
		scope:  s,
		key:    key,
		chain:  chain,
		model:  m,
		entity: e,
	}, nil
}

// build merges required, filled and explicit attributes, applies them, and
// repairs the fields the store flags once. The result may still be invalid
// when an association it depends on is not finished yet. post runs before
// the final_value event.
func (b *builder) build(overrides []Attr, post func(*model.Entity) error) (*model.Entity, error) {
	b.seq = b.scope.nextSeq(b.model.Kind)

	bundles := [][]Attr{Gen(b.model.Required()...)}
	for _, name := range b.chain {
		bundles = append(bundles, b.scope.fills.Get(name))
	}
	bundles = append(bundles, overrides)
	attrs := merge(bundles...)

	b.log(activity.VerbBuilding, formatAttrs(attrs))
	if err := b.apply(attrs); err != nil {
		return nil, err
	}
	if invalid := b.scope.rt.store.Validate(b.ctx, b.entity); len(invalid) > 0 {
		repair := Gen(invalid...)
		b.log(activity.VerbFixingErrors, formatAttrs(repair))
		if err := b.apply(repair); err != nil {
			return nil, err
		}
	}
	if post != nil {
		if err := post(b.entity); err != nil {
			return nil, err
		}
	}
	b.log(activity.VerbFinalValue, b.entity)
	return b.entity, nil
}

func (b *builder) apply(attrs []Attr) error {
	for _, attr := range attrs {
		if err := b.set(attr.Name, attr.Value); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) set(name string, value any) error {
	if rel, ok := b.model.Relation(name); ok {
		if b.entity.Present(name) {
			return nil
		}
		resolved, err := b.resolve(name, value)
		if err != nil {
			return err
		}
		return b.associate(rel, resolved)
	}

	resolved, err := b.resolve(name, value)
	if err != nil {
		return err
	}
	if isAuto(resolved) {
		synthesized, ok := b.synthesize(name)
		if !ok {
			return nil
		}
		resolved = synthesized
	}
	b.log(activity.VerbSetting, name, resolved)
	b.entity.Set(name, resolved)
	return nil
}

func (b *builder) resolve(field string, value any) (any, error) {
	return b.scope.rt.resolve(BuildContext{
		Context:   b.ctx,
		Scope:     b.scope,
		Entity:    b.entity,
		Kind:      b.model.Kind,
		Character: b.key,
		Field:     field,
		Seq:       b.seq,
		Now:       b.scope.rt.cfg.now(),
	}, value)
}

func (b *builder) associate(rel model.Relation, value any) error {
	if isAuto(value) {
		if rel.Polymorphic || rel.To == "" {
			b.log(activity.VerbDiagnostic, "no target kind for relation", rel.Name)
			return nil
		}
		value = rel.To
	}
	b.log(activity.VerbSettingAssociation, rel.Name, value)

	var seed []Attr
	if rel.Kind.Owning() {
		if key := rel.InverseKey(b.model.Kind); key != "" {
			seed = []Attr{{Name: key, Value: b.entity}}
		}
	}

	var (
		one  *model.Entity
		many []*model.Entity
		list bool
	)
	switch v := value.(type) {
	case nil:
		list = rel.Kind.Many()
	case string:
		target, err := b.character(v, seed)
		if err != nil {
			return err
		}
		one = target
	case *model.Entity:
		one = v
	case []*model.Entity:
		many, list = v, true
	case int:
		if !rel.Kind.Many() || rel.To == "" {
			return usageError("imagine", b.model.Kind+"."+rel.Name, "a count needs a to-many relation with a target kind")
		}
		for range v {
			target, err := b.nested(rel.To, seed)
			if err != nil {
				return err
			}
			many = append(many, target)
		}
		list = true
	default:
		return usageError("imagine", b.model.Kind+"."+rel.Name, "unsupported relation value %T", value)
	}

	if rel.Kind == model.HasMany && one != nil && one.Persisted() && !b.linked(rel, one) {
		b.log(activity.VerbAdditionalCharacter, rel.Name)
		key := one.Kind()
		if name, ok := value.(string); ok {
			key = name
		}
		fresh, err := b.nested(key, seed)
		if err != nil {
			return err
		}
		one = fresh
	}

	if rel.Kind.Many() {
		if !list && one != nil {
			many = []*model.Entity{one}
		}
		b.log(activity.VerbSetting, rel.Name, many)
		b.entity.SetMany(rel.Name, many)
		return nil
	}
	if list {
		if len(many) > 1 {
			return usageError("imagine", b.model.Kind+"."+rel.Name, "takes one character, got %d", len(many))
		}
		if len(many) == 1 {
			one = many[0]
		}
	}
	b.log(activity.VerbSetting, rel.Name, one)
	b.entity.SetOne(rel.Name, one)
	return nil
}

// character returns the current character for key or builds one.
func (b *builder) character(key string, seed []Attr) (*model.Entity, error) {
	if current := b.scope.Current(key); current != nil {
		return current, nil
	}
	return b.nested(key, seed)
}

func (b *builder) nested(key string, seed []Attr) (*model.Entity, error) {
	nb, err := b.scope.newBuilder(b.ctx, b.scope.key(key))
	if err != nil {
		return nil, err
	}
	return nb.build(seed, nil)
}

// linked reports whether target already points back at the entity being
// built through the relation's inverse slot.
func (b *builder) linked(rel model.Relation, target *model.Entity) bool {
	key := rel.InverseKey(b.model.Kind)
	if key == "" {
		return true
	}
	return target.One(key) == b.entity
}

func (b *builder) synthesize(name string) (any, bool) {
	f, ok := b.model.Field(name)
	if !ok {
		b.log(activity.VerbDiagnostic, "unknown field", b.model.Kind+"#"+name)
		return nil, false
	}
	seq := b.seq
	suffix := ""
	if seq > 1 {
		suffix = fmt.Sprintf(" {%d}", seq)
	}
	now := b.scope.rt.cfg.now()
	switch f.Type {
	case model.FieldInteger:
		return seq, true
	case model.FieldFloat:
		return float64(seq), true
	case model.FieldDecimal:
		return fmt.Sprintf("%d.99", seq), true
	case model.FieldDatetime:
		return now.Add(-24*time.Hour + time.Duration(seq)*time.Second), true
	case model.FieldDate:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(-1, 0, seq), true
	case model.FieldBoolean:
		return false, true
	case model.FieldString:
		switch name {
		case "email":
			return fmt.Sprintf("joe%d@example.com", seq), true
		case "name", "title":
			return "Example " + model.Humanize(b.model.DisplayName()) + suffix, true
		default:
			return "Some " + name + suffix, true
		}
	case model.FieldText:
		return "Some " + name + " text" + suffix, true
	case model.FieldEnum:
		if len(f.Values) > 0 {
			return f.Values[0], true
		}
	}
	b.log(activity.VerbDiagnostic, "unknown type for", b.model.Kind+"#"+name, f.Type)
	return nil, false
}

func (b *builder) log(verb string, details ...any) {
	b.scope.rt.log(b.ctx, verb, b.model.Kind, details...)
}

func isAuto(value any) bool {
	_, ok := value.(auto)
	return ok
}
