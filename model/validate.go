package model

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

const (
	MessageBlank    = "can't be blank"
	MessageExcluded = "is not included in the list"
)

// FieldError is one failed validation on one attribute.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + " " + e.Message
}

// ValidationError is returned by stores when an entity fails validation.
type ValidationError struct {
	Entity *Entity
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.String())
	}
	return fmt.Sprintf("model: %s invalid: %s", e.Entity.Kind(), strings.Join(parts, ", "))
}

// Fields returns the distinct invalid attribute names.
func (e *ValidationError) Fields() []string {
	if e == nil {
		return nil
	}
	return FieldNames(e.Errors)
}

// FieldNames returns the distinct attribute names in errs, in order.
func FieldNames(errs []FieldError) []string {
	var out []string
	for _, fe := range errs {
		if !slices.Contains(out, fe.Field) {
			out = append(out, fe.Field)
		}
	}
	return out
}

// Validate runs the presence validations, enum membership checks and custom
// validators declared on the entity's model.
func Validate(e *Entity) []FieldError {
	if e == nil || e.model == nil {
		return nil
	}
	var errs []FieldError
	for _, v := range e.model.Validations {
		if v.Unless != "" && e.Present(v.Unless) {
			continue
		}
		for _, attr := range v.Attributes {
			if !e.Present(attr) {
				errs = append(errs, FieldError{Field: attr, Message: MessageBlank})
			}
		}
	}
	for _, f := range e.model.Fields {
		if f.Type != FieldEnum || len(f.Values) == 0 {
			continue
		}
		value := e.Get(f.Name)
		if value == nil {
			continue
		}
		if !slices.Contains(f.Values, fmt.Sprint(value)) {
			errs = append(errs, FieldError{Field: f.Name, Message: MessageExcluded})
		}
	}
	for _, fn := range e.model.Validators {
		if fn == nil {
			continue
		}
		errs = append(errs, fn(e)...)
	}
	return errs
}

func blank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case *Entity:
		return v == nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
