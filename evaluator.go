package story

import (
	"fmt"
	"maps"
	"strings"
)

// Evaluator computes Expr attribute values.
type Evaluator interface {
	Evaluate(ctx RuleContext, src string) (any, error)
	Compile(src string) (Program, error)
}

// Program is a compiled expression, reusable across characters.
type Program interface {
	Run(ctx RuleContext) (any, error)
}

// engine is the part of an evaluator that differs per expression language.
// compile results are opaque to everything but run.
type engine interface {
	compile(src string) (any, error)
	run(program any, ctx RuleContext) (any, error)
}

// EngineOption configures the evaluators built by NewExprEvaluator,
// NewCELEvaluator and NewJSEvaluator.
type EngineOption func(*engineConfig)

type engineConfig struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// EngineProgramCache stores compiled programs in cache. One cache may serve
// several engines.
func EngineProgramCache(cache ProgramCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// EngineFunctions makes the registry's functions callable from expressions.
func EngineFunctions(registry *FunctionRegistry) EngineOption {
	return func(cfg *engineConfig) {
		cfg.functions = registry.Clone()
	}
}

func newEngineConfig(opts []EngineOption) engineConfig {
	var cfg engineConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// engineEvaluator adapts an engine to Evaluator. Cache keys carry the engine
// name so engines sharing a cache never see each other's programs.
type engineEvaluator struct {
	name   string
	engine engine
	cache  ProgramCache
}

func newEngineEvaluator(name string, e engine, cfg engineConfig) *engineEvaluator {
	return &engineEvaluator{name: name, engine: e, cache: cfg.cache}
}

// Engine names the expression language.
func (ev *engineEvaluator) Engine() string {
	return ev.name
}

func (ev *engineEvaluator) Evaluate(ctx RuleContext, src string) (any, error) {
	program, err := ev.Compile(src)
	if err != nil {
		return nil, err
	}
	return program.Run(ctx)
}

func (ev *engineEvaluator) Compile(src string) (Program, error) {
	if strings.TrimSpace(src) == "" {
		return nil, wrapEvaluationError(ev.name, src, "", errEmptyExpression)
	}
	key := ev.name + ":" + src
	if ev.cache != nil {
		if cached, ok := ev.cache.Get(key); ok {
			return &compiledProgram{evaluator: ev, src: src, program: cached}, nil
		}
	}
	program, err := ev.engine.compile(src)
	if err != nil {
		return nil, wrapEvaluationError(ev.name, src, "", err)
	}
	if ev.cache != nil {
		ev.cache.Set(key, program)
	}
	return &compiledProgram{evaluator: ev, src: src, program: program}, nil
}

type compiledProgram struct {
	evaluator *engineEvaluator
	src       string
	program   any
}

func (p *compiledProgram) Run(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	out, err := p.evaluator.engine.run(p.program, ctx)
	if err != nil {
		return nil, wrapEvaluationError(p.evaluator.name, p.src, ctx.label(), err)
	}
	return out, nil
}

// environment flattens ctx for engines without declared variables: the
// attributes set so far, shadowed by the bindings, shadowed by the
// registered functions and call(name, args...).
func environment(ctx RuleContext, functions *FunctionRegistry) map[string]any {
	env := maps.Clone(ctx.Snapshot)
	if env == nil {
		env = map[string]any{}
	}
	maps.Copy(env, ctx.bindings())
	if functions == nil {
		return env
	}
	env["call"] = functions.Call
	for _, name := range functions.Names() {
		env[name] = functions.bind(name)
	}
	return env
}

func unexpectedProgram(engine string, program any) error {
	return fmt.Errorf("%s: unexpected program %T", engine, program)
}
