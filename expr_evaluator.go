package story

import (
	"errors"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEngine runs github.com/expr-lang/expr programs. Attributes are plain
// variables, so `first_name + " " + last_name` reads the character itself.
type exprEngine struct {
	functions *FunctionRegistry
}

// NewExprEvaluator returns the default Evaluator, backed by expr-lang/expr.
func NewExprEvaluator(opts ...EngineOption) Evaluator {
	cfg := newEngineConfig(opts)
	return newEngineEvaluator(EngineExpr, exprEngine{functions: cfg.functions}, cfg)
}

func (e exprEngine) compile(src string) (any, error) {
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.functions != nil {
		options = append(options, exprlang.Function("call", e.call))
		for _, name := range e.functions.Names() {
			options = append(options, exprlang.Function(name, e.functions.bind(name)))
		}
	}
	return exprlang.Compile(src, options...)
}

func (e exprEngine) run(program any, ctx RuleContext) (any, error) {
	compiled, ok := program.(*exprvm.Program)
	if !ok {
		return nil, unexpectedProgram(EngineExpr, program)
	}
	return exprlang.Run(compiled, environment(ctx, e.functions))
}

func (e exprEngine) call(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, errors.New("call requires a function name")
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, errors.New("call requires a function name")
	}
	return e.functions.Call(name, args[1:]...)
}
