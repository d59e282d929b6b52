package story

import (
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// celEngine type-checks expressions against a fixed environment, so one
// compiled program serves every kind. Attributes are read through "attrs"
// (`attrs.first_name`); registered functions through call(name, [args]).
type celEngine struct {
	functions *FunctionRegistry

	once   sync.Once
	env    *celgo.Env
	envErr error
}

// NewCELEvaluator returns an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...EngineOption) Evaluator {
	cfg := newEngineConfig(opts)
	return newEngineEvaluator(EngineCEL, &celEngine{functions: cfg.functions}, cfg)
}

func (e *celEngine) compile(src string) (any, error) {
	env, err := e.environment()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return env.Program(ast)
}

func (e *celEngine) run(program any, ctx RuleContext) (any, error) {
	prg, ok := program.(celgo.Program)
	if !ok {
		return nil, unexpectedProgram(EngineCEL, program)
	}
	activation := ctx.bindings()
	activation["seq"] = int64(ctx.Seq)
	out, _, err := prg.Eval(activation)
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (e *celEngine) environment() (*celgo.Env, error) {
	e.once.Do(func() {
		opts := []celgo.EnvOption{
			celgo.Variable("now", celgo.TimestampType),
			celgo.Variable("args", celgo.DynType),
			celgo.Variable("metadata", celgo.DynType),
			celgo.Variable("attrs", celgo.MapType(celgo.StringType, celgo.DynType)),
			celgo.Variable("kind", celgo.StringType),
			celgo.Variable("character", celgo.StringType),
			celgo.Variable("field", celgo.StringType),
			celgo.Variable("seq", celgo.IntType),
		}
		if e.functions != nil {
			opts = append(opts, celgo.Function("call", celgo.Overload(
				"call_string_list",
				[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
				celgo.DynType,
				celgo.BinaryBinding(e.call),
			)))
		}
		e.env, e.envErr = celgo.NewEnv(opts...)
	})
	return e.env, e.envErr
}

// call backs call(name, [args...]).
func (e *celEngine) call(nameVal, argsVal ref.Val) ref.Val {
	name, ok := nameVal.Value().(string)
	if !ok {
		return types.NewErr("call: function name must be a string")
	}
	list, ok := argsVal.(traits.Lister)
	if !ok {
		return types.NewErr("call: arguments must be a list")
	}
	var args []any
	for it := list.Iterator(); it.HasNext() == types.True; {
		args = append(args, it.Next().Value())
	}
	result, err := e.functions.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}
