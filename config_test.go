package story_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	story "github.com/goliatone/go-story"
	"github.com/goliatone/go-story/pkg/store"
	"github.com/goliatone/go-story/pkg/store/sqlitestore"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("STORY_MODELS_DIR", "testdata")
	t.Setenv("STORY_EVALUATOR", "cel")
	t.Setenv("STORY_LOG_EVENTS", "saving,building")

	cfg, err := story.ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "testdata", cfg.ModelsDir)
	assert.Equal(t, story.EngineCEL, cfg.Evaluator)
	assert.Equal(t, story.StoreMemory, cfg.Store)
	assert.Equal(t, "story.db", cfg.SQLitePath)
	assert.Equal(t, "snapshot", cfg.Rollback)
	assert.Equal(t, []string{"saving", "building"}, cfg.LogEvents)
	assert.False(t, cfg.LogOff)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.yaml")
	data := []byte("models_dir: testdata\nstore: sqlite\nsqlite_path: fixtures.db\nrollback: hard\nlog_characters:\n  - user\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("STORY_EVALUATOR", "cel")

	cfg, err := story.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "testdata", cfg.ModelsDir)
	assert.Equal(t, story.StoreSQLite, cfg.Store)
	assert.Equal(t, "fixtures.db", cfg.SQLitePath)
	assert.Equal(t, story.EngineCEL, cfg.Evaluator)
	assert.Equal(t, []string{"user"}, cfg.LogCharacters)

	rb, err := cfg.RollbackPolicy()
	require.NoError(t, err)
	assert.Equal(t, story.RollbackHard, rb)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := story.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	defaults := story.DefaultConfig()
	assert.Equal(t, defaults.Store, cfg.Store)
	assert.Equal(t, defaults.SQLitePath, cfg.SQLitePath)
	assert.Equal(t, defaults.Evaluator, cfg.Evaluator)
	assert.Equal(t, defaults.Rollback, cfg.Rollback)
	assert.Empty(t, cfg.ModelsDir)
}

func TestConfigLogger(t *testing.T) {
	logger := story.Config{LogEvents: []string{"saving"}, LogCharacters: []string{"user"}}.Logger()
	assert.True(t, logger.Allows("saving", "user"))
	assert.False(t, logger.Allows("building", "user"))
	assert.False(t, logger.Allows("saving", "page"))

	off := story.Config{LogOff: true, LogEvents: []string{"saving"}}.Logger()
	assert.False(t, off.Allows("saving", "user"))

	all := story.Config{}.Logger()
	assert.True(t, all.Allows("diagnostic", "page"))
}

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()
	rt, err := story.Open(ctx, story.Config{ModelsDir: "testdata"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	user, err := story.Tell(ctx, rt.Chain(), story.RollbackNone, func(s *story.Scope) (any, error) {
		return s.Imagine(ctx, "user")
	})
	require.NoError(t, err)
	assert.NotNil(t, user)
}

func TestOpenAppliesDefaultRollback(t *testing.T) {
	ctx := context.Background()
	t.Setenv("STORY_ROLLBACK", "hard")
	cfg, err := story.ConfigFromEnv()
	require.NoError(t, err)
	cfg.ModelsDir = "testdata"

	rt, err := story.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	assert.Equal(t, story.RollbackHard, rt.DefaultRollback())

	memory, ok := rt.Store().(*store.MemoryStore)
	require.True(t, ok)
	err = rt.Chain().Run(ctx, func(s *story.Scope) error {
		_, err := s.Imagine(ctx, "user")
		assert.Equal(t, 1, memory.Count("user"))
		return err
	})
	require.NoError(t, err)
	assert.Zero(t, memory.Count("user"))

	plain, err := story.Open(ctx, story.Config{ModelsDir: "testdata"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = plain.Close() })
	assert.Equal(t, story.RollbackSnapshot, plain.DefaultRollback())
}

func TestOpenSQLiteStore(t *testing.T) {
	ctx := context.Background()
	rt, err := story.Open(ctx, story.Config{
		ModelsDir:  "testdata",
		Store:      story.StoreSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "story.db"),
		Evaluator:  story.EngineCEL,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	st, ok := rt.Store().(*sqlitestore.Store)
	require.True(t, ok)

	err = rt.Chain().Within(ctx, story.RollbackHard, func(s *story.Scope) error {
		section, err := s.Imagine(ctx, "section", story.Set("content", story.Expr(`"About " + kind`)))
		if err != nil {
			return err
		}
		assert.True(t, section.Persisted())
		assert.Equal(t, "About section", section.Get("content"))

		count, err := st.Count(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 4, count)
		return nil
	})
	require.NoError(t, err)

	count, err := st.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cfg  story.Config
	}{
		{name: "no models dir", cfg: story.Config{}},
		{name: "unknown store", cfg: story.Config{ModelsDir: "testdata", Store: "redis"}},
		{name: "unknown evaluator", cfg: story.Config{ModelsDir: "testdata", Evaluator: "lua"}},
		{name: "unknown rollback", cfg: story.Config{ModelsDir: "testdata", Rollback: "sometimes"}},
		{name: "missing models dir", cfg: story.Config{ModelsDir: filepath.Join(t.TempDir(), "nope")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt, err := story.Open(ctx, tc.cfg)
			require.Error(t, err)
			assert.Nil(t, rt)
		})
	}
}
