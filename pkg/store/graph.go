package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-story/model"
)

// MessageInvalid is reported on an owner relation whose new children fail
// validation.
const MessageInvalid = "is invalid"

var ErrNoBackend = errors.New("store: backend is required")

// Backend persists a single entity row.
type Backend interface {
	// Write inserts or updates e and returns its id. Relation links are
	// recorded for targets that are already persisted.
	Write(ctx context.Context, e *model.Entity) (string, error)
	// Remove deletes the row for e.
	Remove(ctx context.Context, e *model.Entity) error
}

// ValidateFunc reports field errors for an entity.
type ValidateFunc func(*model.Entity) []model.FieldError

// Graph saves entities together with their unsaved related entities.
type Graph struct {
	Backend  Backend
	Validate ValidateFunc
}

// Save persists e and its unsaved relations. An invalid entity, or an entity
// with invalid new children, yields a *model.ValidationError.
func (g Graph) Save(ctx context.Context, e *model.Entity) error {
	if g.Backend == nil {
		return ErrNoBackend
	}
	if e == nil {
		return fmt.Errorf("store: save: nil entity")
	}
	return g.save(ctx, e, map[*model.Entity]struct{}{})
}

// Delete removes a persisted entity. Transient entities are ignored.
func (g Graph) Delete(ctx context.Context, e *model.Entity) error {
	if g.Backend == nil {
		return ErrNoBackend
	}
	if e == nil || !e.Persisted() {
		return nil
	}
	if err := g.Backend.Remove(ctx, e); err != nil {
		return fmt.Errorf("store: delete %s: %w", e, err)
	}
	e.MarkDeleted()
	return nil
}

// Errors runs the configured validation for e.
func (g Graph) Errors(e *model.Entity) []model.FieldError {
	if g.Validate != nil {
		return g.Validate(e)
	}
	return model.Validate(e)
}

// Invalid lists the names of e's invalid attributes.
func (g Graph) Invalid(_ context.Context, e *model.Entity) []string {
	return model.FieldNames(g.Errors(e))
}

func (g Graph) save(ctx context.Context, e *model.Entity, visiting map[*model.Entity]struct{}) error {
	if _, ok := visiting[e]; ok {
		return nil
	}
	visiting[e] = struct{}{}

	relations := e.Model().Relations
	for _, rel := range relations {
		if rel.Kind != model.BelongsTo {
			continue
		}
		parent := e.One(rel.Name)
		if parent == nil || parent.Persisted() {
			continue
		}
		// Invalid parents are left unsaved and the link is not recorded.
		if err := g.save(ctx, parent, visiting); err != nil {
			var invalid *model.ValidationError
			if !errors.As(err, &invalid) {
				return err
			}
		}
	}

	if errs := g.Errors(e); len(errs) > 0 {
		return &model.ValidationError{Entity: e, Errors: errs}
	}

	var childErrs []model.FieldError
	for _, rel := range relations {
		if !rel.Kind.Owning() {
			continue
		}
		for _, child := range related(e, rel) {
			if child.Persisted() {
				continue
			}
			if _, ok := visiting[child]; ok {
				continue
			}
			if len(g.Errors(child)) > 0 {
				childErrs = append(childErrs, model.FieldError{Field: rel.Name, Message: MessageInvalid})
				break
			}
		}
	}
	if len(childErrs) > 0 {
		return &model.ValidationError{Entity: e, Errors: childErrs}
	}

	id, err := g.Backend.Write(ctx, e)
	if err != nil {
		return fmt.Errorf("store: write %s: %w", e, err)
	}
	e.MarkPersisted(id)

	for _, rel := range relations {
		if rel.Kind == model.BelongsTo {
			continue
		}
		for _, child := range related(e, rel) {
			if child.Persisted() {
				continue
			}
			if err := g.save(ctx, child, visiting); err != nil {
				return err
			}
		}
	}
	return nil
}

func related(e *model.Entity, rel model.Relation) []*model.Entity {
	if rel.Kind.Many() {
		return e.Many(rel.Name)
	}
	if one := e.One(rel.Name); one != nil {
		return []*model.Entity{one}
	}
	return nil
}
