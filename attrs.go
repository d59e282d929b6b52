package story

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

type auto struct{}

func (auto) String() string { return "Auto" }

// Auto asks the builder to pick a value: a synthesized one for plain fields,
// the relation's target kind for associations.
var Auto any = auto{}

// Attr is one entry of an attribute bundle. Value may be a concrete value,
// Auto, a Lambda or an Expr. For relations it may also be a character key,
// an entity, a list of entities or a count of characters to build.
type Attr struct {
	Name  string
	Value any
}

func (a Attr) String() string {
	return fmt.Sprintf("%s=%v", a.Name, a.Value)
}

// Set returns an attribute with an explicit value.
func Set(name string, value any) Attr {
	return Attr{Name: name, Value: value}
}

// Gen returns Auto attributes for names.
func Gen(names ...string) []Attr {
	out := make([]Attr, 0, len(names))
	for _, name := range names {
		out = append(out, Attr{Name: name, Value: Auto})
	}
	return out
}

// Attrs converts a map into attributes ordered by name.
func Attrs(values map[string]any) []Attr {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Attr, 0, len(names))
	for _, name := range names {
		out = append(out, Attr{Name: name, Value: values[name]})
	}
	return out
}

// merge folds bundles left to right. A later value wins but keeps the
// position where the name first appeared.
func merge(bundles ...[]Attr) []Attr {
	var out []Attr
	index := map[string]int{}
	for _, bundle := range bundles {
		for _, attr := range bundle {
			if attr.Name == "" {
				continue
			}
			if i, ok := index[attr.Name]; ok {
				out[i].Value = attr.Value
				continue
			}
			index[attr.Name] = len(out)
			out = append(out, attr)
		}
	}
	return out
}

func formatAttrs(attrs []Attr) string {
	parts := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		parts = append(parts, attr.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func cloneAttrs(attrs []Attr) []Attr {
	return slices.Clone(attrs)
}
