// Package story builds valid, interlinked test entities ("characters") inside
// nested scopes and undoes their effects when a scope closes.
//
// A Runtime owns the model registry, the store and a root scope. Each
// goroutine opens its own Chain of scopes on top of that root:
//
//	rt, _ := story.New(registry, store.NewMemoryStore())
//	err := rt.Chain().Within(ctx, story.RollbackHard, func(s *story.Scope) error {
//		user, err := s.Imagine(ctx, "user", story.Set("city", "Paris"))
//		...
//	})
package story

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/goliatone/go-story/model"
	"github.com/goliatone/go-story/pkg/activity"
	"github.com/goliatone/go-story/pkg/store"
)

// Store persists characters. Save returns a *model.ValidationError when the
// entity is invalid; Validate lists the invalid field names.
type Store interface {
	Save(ctx context.Context, e *model.Entity) error
	Delete(ctx context.Context, e *model.Entity) error
	Validate(ctx context.Context, e *model.Entity) []string
}

// Models resolves kinds to model descriptors. *model.Registry satisfies it.
type Models interface {
	Lookup(kind string) (*model.Model, bool)
	Normalize(key string) string
}

// Runtime is shared by every chain. It is safe for concurrent use once the
// root scope is frozen.
type Runtime struct {
	models     Models
	store      Store
	cfg        runtimeConfig
	logger     *activity.Logger
	evaluator  Evaluator
	evalLogger EvaluatorLogger
	root       *Scope
	frozen     atomic.Bool
}

// New returns a runtime over models. A nil store selects a MemoryStore.
func New(models Models, st Store, opts ...Option) (*Runtime, error) {
	if models == nil {
		return nil, errors.New("story: models are required")
	}
	if st == nil {
		st = store.NewMemoryStore()
	}
	cfg := applyOptions(opts)
	evaluator, err := cfg.buildEvaluator()
	if err != nil {
		return nil, err
	}
	rt := &Runtime{
		models:    models,
		store:     st,
		cfg:       cfg,
		logger:    buildLogger(cfg),
		evaluator: evaluator,
	}
	rt.evalLogger = cfg.evalLogger
	if rt.evalLogger == nil {
		rt.evalLogger = ActivityEvaluatorLogger(rt.logger)
	}
	rt.root = newScope(rt, nil)
	return rt, nil
}

// DefaultRollback is the rollback Chain.Run closes scopes with.
func (rt *Runtime) DefaultRollback() Rollback {
	return rt.cfg.rollback
}

// Root returns the shared root scope. It accepts fills and imagines until
// the first chain opens a scope on top of it.
func (rt *Runtime) Root() *Scope {
	return rt.root
}

// Chain starts an independent scope chain rooted at the shared root.
func (rt *Runtime) Chain() *Chain {
	return &Chain{rt: rt}
}

// Logger returns the build event logger.
func (rt *Runtime) Logger() *activity.Logger {
	return rt.logger
}

// Models returns the model source.
func (rt *Runtime) Models() Models {
	return rt.models
}

// Store returns the persistence backend.
func (rt *Runtime) Store() Store {
	return rt.store
}

// Frozen reports whether the root scope has become read-only.
func (rt *Runtime) Frozen() bool {
	return rt.frozen.Load()
}

// Close releases the store when it holds resources.
func (rt *Runtime) Close() error {
	if closer, ok := rt.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("story: close store: %w", err)
		}
	}
	return nil
}

func (rt *Runtime) log(ctx context.Context, verb, character string, details ...any) {
	rt.logger.Log(ctx, verb, character, details...)
}
