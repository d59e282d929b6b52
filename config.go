package story

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"github.com/goliatone/go-story/model"
	"github.com/goliatone/go-story/pkg/activity"
	"github.com/goliatone/go-story/pkg/store"
	"github.com/goliatone/go-story/pkg/store/sqlitestore"
)

// Store backends selectable through Config.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

const envPrefix = "STORY"

// Config assembles a Runtime from plain settings. Fields read from STORY_*
// environment variables (ConfigFromEnv) or from a config file (LoadConfig).
type Config struct {
	ModelsDir     string   `env:"MODELS_DIR" mapstructure:"models_dir"`
	Store         string   `env:"STORE" envDefault:"memory" mapstructure:"store"`
	SQLitePath    string   `env:"SQLITE_PATH" envDefault:"story.db" mapstructure:"sqlite_path"`
	Evaluator     string   `env:"EVALUATOR" envDefault:"expr" mapstructure:"evaluator"`
	Rollback      string   `env:"ROLLBACK" envDefault:"snapshot" mapstructure:"rollback"`
	LogEvents     []string `env:"LOG_EVENTS" envSeparator:"," mapstructure:"log_events"`
	LogCharacters []string `env:"LOG_CHARACTERS" envSeparator:"," mapstructure:"log_characters"`
	LogOff        bool     `env:"LOG_OFF" mapstructure:"log_off"`
}

// DefaultConfig returns the settings used for unset fields.
func DefaultConfig() Config {
	return Config{
		Store:      StoreMemory,
		SQLitePath: "story.db",
		Evaluator:  EngineExpr,
		Rollback:   RollbackSnapshot.String(),
	}
}

// ConfigFromEnv reads the configuration from STORY_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix + "_"}); err != nil {
		return Config{}, fmt.Errorf("story: parse env: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads path (YAML, TOML or JSON by extension) with STORY_*
// environment overrides. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	defaults := DefaultConfig()
	v := viper.New()
	v.SetDefault("models_dir", defaults.ModelsDir)
	v.SetDefault("store", defaults.Store)
	v.SetDefault("sqlite_path", defaults.SQLitePath)
	v.SetDefault("evaluator", defaults.Evaluator)
	v.SetDefault("rollback", defaults.Rollback)
	v.SetDefault("log_events", []string{})
	v.SetDefault("log_characters", []string{})
	v.SetDefault("log_off", false)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("story: read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("story: decode config: %w", err)
	}
	return cfg, nil
}

// RollbackPolicy parses the configured rollback.
func (c Config) RollbackPolicy() (Rollback, error) {
	return ParseRollback(c.Rollback)
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Store == "" {
		c.Store = defaults.Store
	}
	if c.SQLitePath == "" {
		c.SQLitePath = defaults.SQLitePath
	}
	if c.Evaluator == "" {
		c.Evaluator = defaults.Evaluator
	}
	if c.Rollback == "" {
		c.Rollback = defaults.Rollback
	}
	return c
}

// Logger builds the activity logger the configuration describes.
func (c Config) Logger(hooks ...activity.ActivityHook) *activity.Logger {
	logger := activity.NewLogger(activity.Hooks(hooks), activity.Config{})
	if c.LogOff {
		return logger.Off()
	}
	only := append(append([]string(nil), c.LogEvents...), c.LogCharacters...)
	if len(only) > 0 {
		logger.Only(only...)
	}
	return logger
}

// Open builds a Runtime from cfg: models loaded from ModelsDir, the selected
// store and evaluator engine, and a logger filtered as configured. opts are
// applied after the configured ones.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Runtime, error) {
	cfg = cfg.withDefaults()
	if cfg.ModelsDir == "" {
		return nil, errors.New("story: models_dir is required")
	}
	rollback, err := cfg.RollbackPolicy()
	if err != nil {
		return nil, err
	}
	registry, err := model.LoadDir(cfg.ModelsDir)
	if err != nil {
		return nil, fmt.Errorf("story: load models: %w", err)
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithEngine(cfg.Evaluator),
		WithProgramCache(NewProgramCache()),
		WithLogger(cfg.Logger()),
		WithDefaultRollback(rollback),
	}
	rt, err := New(registry, st, append(base, opts...)...)
	if err != nil {
		if closer, ok := st.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, err
	}
	return rt, nil
}

func openStore(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Store) {
	case StoreMemory:
		return store.NewMemoryStore(), nil
	case StoreSQLite:
		st, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("story: open sqlite store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("story: unknown store %q", cfg.Store)
	}
}
