// Package model describes the domain types a story can build: their fields,
// relations and presence validations, plus the Entity record that carries
// attribute values and loaded relation slots at runtime.
package model

import "slices"

// FieldType is the semantic type of a plain field.
type FieldType string

const (
	FieldInteger  FieldType = "integer"
	FieldFloat    FieldType = "float"
	FieldDecimal  FieldType = "decimal"
	FieldDatetime FieldType = "datetime"
	FieldDate     FieldType = "date"
	FieldString   FieldType = "string"
	FieldText     FieldType = "text"
	FieldBoolean  FieldType = "boolean"
	FieldEnum     FieldType = "enum"
)

// Field defines a plain (non relation) attribute.
type Field struct {
	Name   string    `yaml:"name"`
	Type   FieldType `yaml:"type"`
	Values []string  `yaml:"values,omitempty"`
}

// RelationKind mirrors the usual association macros.
type RelationKind string

const (
	BelongsTo  RelationKind = "belongs_to"
	HasOne     RelationKind = "has_one"
	HasMany    RelationKind = "has_many"
	ManyToMany RelationKind = "many_to_many"
)

// Many reports whether the relation holds a list.
func (k RelationKind) Many() bool {
	return k == HasMany || k == ManyToMany
}

// Owning reports whether the related entities point back at the owner
// through their own belongs_to slot.
func (k RelationKind) Owning() bool {
	return k == HasOne || k == HasMany
}

// Relation defines an association slot on a model. Owner is the kind that
// declared it; the registry fills it in so inherited relations keep pointing
// back at the declaring kind.
type Relation struct {
	Name        string       `yaml:"name"`
	Kind        RelationKind `yaml:"kind"`
	To          string       `yaml:"to,omitempty"`
	As          string       `yaml:"as,omitempty"`
	Polymorphic bool         `yaml:"polymorphic,omitempty"`
	InverseOf   string       `yaml:"inverse_of,omitempty"`
	Owner       string       `yaml:"-"`
}

// InverseKey returns the slot name on the related entity that points back to
// an owner of the given kind: the explicit "as" role, the declared inverse,
// or the declaring kind itself.
func (r Relation) InverseKey(owner string) string {
	switch {
	case r.As != "":
		return r.As
	case r.InverseOf != "":
		return r.InverseOf
	case r.Kind.Owning() && r.Owner != "":
		return r.Owner
	case r.Kind.Owning():
		return owner
	default:
		return ""
	}
}

// Presence declares that Attributes must be present unless the Unless
// attribute (a field or relation) is itself present.
type Presence struct {
	Attributes []string `yaml:"presence"`
	Unless     string   `yaml:"unless,omitempty"`
}

// Validator reports extra field errors for an entity.
type Validator func(*Entity) []FieldError

// Model is the read-only descriptor of one entity kind.
type Model struct {
	Kind        string      `yaml:"kind"`
	Name        string      `yaml:"name,omitempty"`
	Extends     string      `yaml:"extends,omitempty"`
	Fields      []Field     `yaml:"fields,omitempty"`
	Relations   []Relation  `yaml:"relations,omitempty"`
	Validations []Presence  `yaml:"validates,omitempty"`
	Validators  []Validator `yaml:"-"`
}

// DisplayName returns Name, falling back to the kind.
func (m *Model) DisplayName() string {
	if m == nil {
		return ""
	}
	if m.Name != "" {
		return m.Name
	}
	return m.Kind
}

// Field looks up a plain field by name.
func (m *Model) Field(name string) (Field, bool) {
	if m == nil {
		return Field{}, false
	}
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Relation looks up a relation by name.
func (m *Model) Relation(name string) (Relation, bool) {
	if m == nil {
		return Relation{}, false
	}
	for _, r := range m.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

// Required lists attributes under unconditional presence validation, in
// declaration order and without duplicates.
func (m *Model) Required() []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, v := range m.Validations {
		if v.Unless != "" {
			continue
		}
		for _, attr := range v.Attributes {
			if !slices.Contains(out, attr) {
				out = append(out, attr)
			}
		}
	}
	return out
}

// inherit returns a copy of m extended with the descriptors of parent that
// m does not redeclare.
func (m *Model) inherit(parent *Model) *Model {
	out := *m
	out.Fields = nil
	out.Relations = nil
	for _, f := range parent.Fields {
		if _, ok := m.Field(f.Name); !ok {
			out.Fields = append(out.Fields, f)
		}
	}
	out.Fields = append(out.Fields, m.Fields...)
	for _, r := range parent.Relations {
		if _, ok := m.Relation(r.Name); !ok {
			out.Relations = append(out.Relations, r)
		}
	}
	out.Relations = append(out.Relations, m.Relations...)
	out.Validations = append(slices.Clone(parent.Validations), m.Validations...)
	out.Validators = append(slices.Clone(parent.Validators), m.Validators...)
	return &out
}
