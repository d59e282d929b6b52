package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-story/model"
	"github.com/goliatone/go-story/pkg/store"
)

func fixtures(t *testing.T) *model.Registry {
	t.Helper()
	models, err := model.ParseFile(filepath.Join("..", "..", "testdata", "models.yaml"))
	require.NoError(t, err)
	return model.MustRegistry(models...)
}

func entity(t *testing.T, reg *model.Registry, kind string, attrs map[string]any) *model.Entity {
	t.Helper()
	m, ok := reg.Lookup(kind)
	require.True(t, ok)
	e := model.New(m)
	for k, v := range attrs {
		e.Set(k, v)
	}
	return e
}

func validUser(t *testing.T, reg *model.Registry) *model.Entity {
	return entity(t, reg, "user", map[string]any{"first_name": "Ada", "last_name": "Lovelace"})
}

func TestSaveValidEntity(t *testing.T) {
	reg := fixtures(t)
	s := store.NewMemoryStore()
	user := validUser(t, reg)

	require.NoError(t, s.Save(context.Background(), user))
	assert.True(t, user.Persisted())
	assert.NotEmpty(t, user.ID())

	record, ok := s.Get(user.ID())
	require.True(t, ok)
	assert.Equal(t, "user", record.Kind)
	assert.Equal(t, "Ada", record.Attributes["first_name"])
	assert.Equal(t, 1, s.Count("user"))
}

func TestSaveInvalidEntityReturnsValidationError(t *testing.T) {
	reg := fixtures(t)
	s := store.NewMemoryStore()
	user := entity(t, reg, "user", nil)

	err := s.Save(context.Background(), user)
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Same(t, user, verr.Entity)
	assert.Equal(t, []string{"first_name", "last_name"}, verr.Fields())
	assert.False(t, user.Persisted())
	assert.Equal(t, 0, s.Count(""))
	assert.Equal(t, []string{"first_name", "last_name"}, s.Validate(context.Background(), user))
}

func TestSaveParentsFirst(t *testing.T) {
	reg := fixtures(t)
	s := store.NewMemoryStore()
	user := validUser(t, reg)
	website := entity(t, reg, "website", nil)
	website.SetOne("user", user)

	require.NoError(t, s.Save(context.Background(), website))
	assert.True(t, user.Persisted())
	assert.True(t, website.Persisted())

	record, _ := s.Get(website.ID())
	assert.Equal(t, []string{user.ID()}, record.Links["user"])
}

func TestInvalidParentIsDropped(t *testing.T) {
	reg := fixtures(t)
	s := store.NewMemoryStore()
	user := entity(t, reg, "user", nil)
	website := entity(t, reg, "website", nil)
	website.SetOne("user", user)

	require.NoError(t, s.Save(context.Background(), website))
	assert.True(t, website.Persisted())
	assert.False(t, user.Persisted())

	record, _ := s.Get(website.ID())
	assert.Empty(t, record.Links["user"])
}

func TestInvalidChildBlocksOwner(t *testing.T) {
	reg := fixtures(t)
	s := store.NewMemoryStore()
	website := entity(t, reg, "website", nil)
	website.SetOne("user", validUser(t, reg))
	require.NoError(t, s.Save(context.Background(), website))

	page := entity(t, reg, "page", nil)
	page.SetOne("website", website)
	page.SetMany("sections", []*model.Entity{entity(t, reg, "section", nil)})

	err := s.Save(context.Background(), page)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"sections"}, verr.Fields())
	assert.Equal(t, store.MessageInvalid, verr.Errors[0].Message)
	assert.False(t, page.Persisted())
}

func TestSaveChildrenAfterOwner(t *testing.T) {
	reg := fixtures(t)
	s := store.NewMemoryStore()
	website := entity(t, reg, "website", nil)
	website.SetOne("user", validUser(t, reg))

	page := entity(t, reg, "page", nil)
	page.SetOne("website", website)
	section := entity(t, reg, "section", map[string]any{"header": "Intro"})
	page.SetMany("sections", []*model.Entity{section})

	require.NoError(t, s.Save(context.Background(), section))
	assert.True(t, page.Persisted())
	assert.True(t, section.Persisted())
	assert.True(t, website.Persisted())
	assert.Equal(t, 4, s.Count(""))

	record, _ := s.Get(section.ID())
	assert.Equal(t, []string{page.ID()}, record.Links["page"])
}

func TestSaveKeepsIDOnUpdate(t *testing.T) {
	reg := fixtures(t)
	s := store.NewMemoryStore()
	user := validUser(t, reg)
	require.NoError(t, s.Save(context.Background(), user))
	id := user.ID()

	user.Set("city", "London")
	require.NoError(t, s.Save(context.Background(), user))
	assert.Equal(t, id, user.ID())
	record, _ := s.Get(id)
	assert.Equal(t, "London", record.Attributes["city"])
}

func TestDelete(t *testing.T) {
	reg := fixtures(t)
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, validUser(t, reg)))

	user := validUser(t, reg)
	require.NoError(t, s.Save(ctx, user))
	require.NoError(t, s.Delete(ctx, user))
	assert.False(t, user.Persisted())
	assert.Equal(t, 0, s.Count("user"))

	ghost := validUser(t, reg)
	ghost.MarkPersisted("missing")
	assert.ErrorIs(t, s.Delete(ctx, ghost), store.ErrNotFound)
}

func TestCustomValidator(t *testing.T) {
	reg := fixtures(t)
	s := store.NewMemoryStore(store.WithValidator(func(e *model.Entity) []model.FieldError {
		return []model.FieldError{{Field: "base", Message: "always fails"}}
	}))
	err := s.Save(context.Background(), validUser(t, reg))
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"base"}, verr.Fields())
}

func TestConcurrentSaves(t *testing.T) {
	reg := fixtures(t)
	s := store.NewMemoryStore()
	users := make([]*model.Entity, 32)
	for i := range users {
		users[i] = validUser(t, reg)
	}

	var wg sync.WaitGroup
	for _, user := range users {
		wg.Add(1)
		go func(e *model.Entity) {
			defer wg.Done()
			assert.NoError(t, s.Save(context.Background(), e))
		}(user)
	}
	wg.Wait()
	assert.Equal(t, len(users), s.Count("user"))
}

func TestGraphRequiresBackend(t *testing.T) {
	assert.ErrorIs(t, store.Graph{}.Save(context.Background(), nil), store.ErrNoBackend)
	assert.ErrorIs(t, store.Graph{}.Delete(context.Background(), nil), store.ErrNoBackend)
}

type failingBackend struct {
	kind string
	err  error
	rows int
}

func (b *failingBackend) Write(_ context.Context, e *model.Entity) (string, error) {
	if e.Kind() == b.kind {
		return "", b.err
	}
	b.rows++
	return e.Kind() + "-1", nil
}

func (b *failingBackend) Remove(context.Context, *model.Entity) error {
	return nil
}

func TestParentWriteFailureStopsSave(t *testing.T) {
	reg := fixtures(t)
	disk := errors.New("disk full")
	backend := &failingBackend{kind: "user", err: disk}
	graph := store.Graph{Backend: backend}
	user := validUser(t, reg)
	website := entity(t, reg, "website", nil)
	website.SetOne("user", user)

	err := graph.Save(context.Background(), website)
	require.ErrorIs(t, err, disk)
	var invalid *model.ValidationError
	assert.False(t, errors.As(err, &invalid))
	assert.False(t, website.Persisted())
	assert.Zero(t, backend.rows)
}
