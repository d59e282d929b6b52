package story

import (
	"fmt"
	"time"

	"github.com/goliatone/go-story/pkg/activity"
)

// RuleContext carries inputs needed when evaluating an expression. Snapshot
// holds the attributes already set on the character being built.
type RuleContext struct {
	Snapshot  map[string]any
	Now       *time.Time
	Args      map[string]any
	Metadata  map[string]any
	Kind      string
	Character string
	Field     string
	Seq       int
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) label() string {
	name := ctx.Character
	if name == "" {
		name = ctx.Kind
	}
	switch {
	case name != "" && ctx.Field != "":
		return name + "." + ctx.Field
	case name != "":
		return name
	default:
		return "unknown"
	}
}

// bindings are the variables every engine exposes next to the snapshot.
func (ctx RuleContext) bindings() map[string]any {
	return map[string]any{
		"now":       ctx.timestamp(),
		"args":      ctx.Args,
		"metadata":  ctx.Metadata,
		"attrs":     ctx.Snapshot,
		"kind":      ctx.Kind,
		"character": ctx.Character,
		"field":     ctx.Field,
		"seq":       ctx.Seq,
	}
}

// Option configures a Runtime.
type Option func(*runtimeConfig)

type runtimeConfig struct {
	evaluator     Evaluator
	engine        string
	programCache  ProgramCache
	functions     *FunctionRegistry
	evalLogger    EvaluatorLogger
	logger        *activity.Logger
	activityHooks activity.Hooks
	now           func() time.Time
	args          map[string]any
	metadata      map[string]any
	rollback      Rollback
}

func applyOptions(opts []Option) runtimeConfig {
	cfg := runtimeConfig{
		functions: builtinFunctions(),
		now:       time.Now,
		rollback:  RollbackSnapshot,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// buildEvaluator returns the configured evaluator or builds the selected
// engine over the configured cache and functions.
func (cfg runtimeConfig) buildEvaluator() (Evaluator, error) {
	if cfg.evaluator != nil {
		return cfg.evaluator, nil
	}
	opts := []EngineOption{EngineFunctions(cfg.functions)}
	if cfg.programCache != nil {
		opts = append(opts, EngineProgramCache(cfg.programCache))
	}
	switch cfg.engine {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("story: js evaluator requires the js_eval build tag")
		}
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("story: unknown evaluator engine %q", cfg.engine)
	}
}
