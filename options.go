package story

import (
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-story/pkg/activity"
)

// Evaluator engines selectable with WithEngine.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// WithEvaluator sets the evaluator used for Expr attribute values, taking
// precedence over WithEngine.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *runtimeConfig) {
		cfg.evaluator = e
	}
}

// WithEngine selects a builtin evaluator by name. The default is the
// expr-lang engine.
func WithEngine(name string) Option {
	return func(cfg *runtimeConfig) {
		cfg.engine = strings.ToLower(strings.TrimSpace(name))
	}
}

// WithDefaultRollback sets the rollback Chain.Run applies. The default is
// RollbackSnapshot.
func WithDefaultRollback(rollback Rollback) Option {
	return func(cfg *runtimeConfig) {
		cfg.rollback = rollback
	}
}

// WithLogger sets the logger build events go to.
func WithLogger(logger *activity.Logger) Option {
	return func(cfg *runtimeConfig) {
		cfg.logger = logger
	}
}

// WithClock sets the clock used for synthesized dates and for evaluator
// contexts.
func WithClock(now func() time.Time) Option {
	return func(cfg *runtimeConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// WithEvalArgs exposes args to expressions as the "args" variable.
func WithEvalArgs(args map[string]any) Option {
	return func(cfg *runtimeConfig) {
		cfg.args = maps.Clone(args)
	}
}

// WithEvalMetadata exposes metadata to expressions as the "metadata"
// variable.
func WithEvalMetadata(metadata map[string]any) Option {
	return func(cfg *runtimeConfig) {
		cfg.metadata = maps.Clone(metadata)
	}
}
