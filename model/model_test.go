package model_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-story/model"
)

func loadFixtures(t *testing.T) *model.Registry {
	t.Helper()
	models, err := model.ParseFile(filepath.Join("..", "testdata", "models.yaml"))
	require.NoError(t, err)
	reg, err := model.NewRegistry(models...)
	require.NoError(t, err)
	return reg
}

func mustLookup(t *testing.T, reg *model.Registry, kind string) *model.Model {
	t.Helper()
	m, ok := reg.Lookup(kind)
	require.True(t, ok, "model %s not registered", kind)
	return m
}

func TestParseFixtureModels(t *testing.T) {
	reg := loadFixtures(t)
	assert.Equal(t, []string{"comment", "page", "post", "section", "user", "website"}, reg.Kinds())

	user := mustLookup(t, reg, "user")
	assert.Equal(t, []string{"first_name", "last_name"}, user.Required())
	f, ok := user.Field("dob")
	require.True(t, ok)
	assert.Equal(t, model.FieldDate, f.Type)

	comment := mustLookup(t, reg, "comment")
	assert.Equal(t, []string{"commentable"}, comment.Required())
	rel, ok := comment.Relation("commentable")
	require.True(t, ok)
	assert.True(t, rel.Polymorphic)
	assert.Empty(t, rel.To)
}

func TestExtendsInheritsParentDescriptors(t *testing.T) {
	reg := loadFixtures(t)
	post := mustLookup(t, reg, "post")

	_, ok := post.Field("header")
	assert.True(t, ok)
	rel, ok := post.Relation("page")
	require.True(t, ok)
	assert.Equal(t, "sections", rel.InverseOf)
	assert.Equal(t, []string{"header", "page", "content"}, post.Required())
	assert.Equal(t, "Post", model.Humanize(post.DisplayName()))

	section := mustLookup(t, reg, "section")
	_, ok = section.Relation("comments")
	assert.False(t, ok, "parent must not gain child relations")
}

func TestRegistryRejectsDuplicatesAndUnknownParents(t *testing.T) {
	reg, err := model.NewRegistry(&model.Model{Kind: "page"})
	require.NoError(t, err)

	err = reg.Register(&model.Model{Kind: "page"})
	assert.ErrorIs(t, err, model.ErrDuplicateModel)

	err = reg.Register(&model.Model{Kind: "post", Extends: "section"})
	assert.ErrorIs(t, err, model.ErrUnknownParent)

	err = reg.Register(&model.Model{Kind: "odd", Relations: []model.Relation{{Name: "x", Kind: "weird"}}})
	assert.ErrorIs(t, err, model.ErrInvalidModel)
}

func TestRegisterAllOrdersParentsFirst(t *testing.T) {
	reg, err := model.NewRegistry(
		&model.Model{Kind: "post", Extends: "section"},
		&model.Model{Kind: "section", Fields: []model.Field{{Name: "header", Type: model.FieldString}}},
	)
	require.NoError(t, err)
	post := mustLookup(t, reg, "post")
	_, ok := post.Field("header")
	assert.True(t, ok)
}

func TestNormalize(t *testing.T) {
	reg := loadFixtures(t)
	assert.Equal(t, "page", reg.Normalize("Page"))
	assert.Equal(t, "page", reg.Normalize("page"))
	assert.Equal(t, "blog_post", reg.Normalize("BlogPost"))
	assert.Equal(t, "admin", reg.Normalize("admin"))
	assert.Equal(t, "post", reg.Normalize("Section::Post"))
	assert.Equal(t, "post", reg.Normalize("section/post"))
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "blog_post", model.Underscore("BlogPost"))
	assert.Equal(t, "section/post", model.Underscore("Section::Post"))
	assert.Equal(t, "html_page", model.Underscore("HTMLPage"))
	assert.Equal(t, "first_name", model.Underscore("first_name"))

	assert.Equal(t, "Blog post", model.Humanize("blog_post"))
	assert.Equal(t, "Blog post", model.Humanize("BlogPost"))
	assert.Equal(t, "User", model.Humanize("user_id"))
	assert.Equal(t, "", model.Humanize(""))
}

func TestParseRejectsModelWithoutKind(t *testing.T) {
	_, err := model.Parse([]byte("models:\n  - name: Nameless\n"))
	assert.ErrorIs(t, err, model.ErrInvalidModel)
}

func TestParseMultipleDocuments(t *testing.T) {
	models, err := model.Parse([]byte("models:\n  - kind: a\n---\nmodels:\n  - kind: b\n"))
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "b", models[1].Kind)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("models:\n  - kind: post\n    extends: section\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("models:\n  - kind: section\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	reg, err := model.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"post", "section"}, reg.Kinds())
}
