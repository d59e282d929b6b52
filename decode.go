package story

import (
	"errors"

	"github.com/goliatone/go-story/internal/hydrate"
	"github.com/goliatone/go-story/model"
)

// Decode copies e's attributes into a T using its JSON field names. A
// persisted entity also exposes "id", and every persisted to-one relation
// exposes "<relation>_id".
func Decode[T any](e *model.Entity) (T, error) {
	return decode[T](e, hydrate.WithPreHook[T](withRelationIDs(e)))
}

// DecodeStrict is Decode over the plain attributes only, failing on
// attributes T has no field for.
func DecodeStrict[T any](e *model.Entity) (T, error) {
	return decode[T](e, hydrate.Strict[T]())
}

func decode[T any](e *model.Entity, opts ...hydrate.Option[T]) (T, error) {
	if e == nil {
		var zero T
		return zero, errors.New("story: decode nil entity")
	}
	ctx := hydrate.Context{Kind: e.Kind(), ID: e.ID()}
	return hydrate.New(opts...).Decode(ctx, e.Attributes())
}

func withRelationIDs(e *model.Entity) hydrate.PreHook {
	return func(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
		if e.Persisted() {
			payload["id"] = e.ID()
		}
		for _, rel := range e.Model().Relations {
			if rel.Kind.Many() {
				continue
			}
			if target := e.One(rel.Name); target.Persisted() {
				payload[rel.Name+"_id"] = target.ID()
			}
		}
		return payload, nil
	}
}
