// Package layering provides the value plumbing behind nested story scopes:
// deep copies of attribute values and tables whose lookups fall through to a
// parent table.
package layering

import "reflect"

// Clone returns a deep copy of value. Maps, slices, arrays and pointers are
// copied recursively; structs that carry unexported state (time.Time,
// decimal types, entities) are returned as-is since they cannot be rebuilt
// field by field. Shared and self-referential containers keep their shape:
// each map, slice or pointer is copied once and the copy is reused.
func Clone[T any](value T) T {
	c := cloner{seen: map[visit]reflect.Value{}}
	cloned := c.value(reflect.ValueOf(&value).Elem())
	if !cloned.IsValid() {
		var zero T
		return zero
	}
	out, _ := cloned.Interface().(T)
	return out
}

// visit identifies a container already being copied.
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type cloner struct {
	seen map[visit]reflect.Value
}

func (c cloner) copied(v reflect.Value) (visit, reflect.Value, bool) {
	key := visit{ptr: v.Pointer(), typ: v.Type()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	clone, ok := c.seen[key]
	return key, clone, ok
}

func (c cloner) value(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() || opaque(v.Type().Elem()) {
			return v
		}
		key, clone, ok := c.copied(v)
		if ok {
			return clone
		}
		clone = reflect.New(v.Type().Elem())
		c.seen[key] = clone
		clone.Elem().Set(c.value(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := c.value(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(elem)
		return out
	case reflect.Struct:
		if opaque(v.Type()) {
			return v
		}
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			clone.Field(i).Set(c.value(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key, clone, ok := c.copied(v)
		if ok {
			return clone
		}
		clone = reflect.MakeMapWithSize(v.Type(), v.Len())
		c.seen[key] = clone
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), c.value(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key, clone, ok := c.copied(v)
		if ok {
			return clone
		}
		clone = reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		c.seen[key] = clone
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(c.value(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(c.value(v.Index(i)))
		}
		return clone
	default:
		return v
	}
}

// opaque reports whether t is a struct with unexported fields.
func opaque(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			return true
		}
	}
	return false
}
