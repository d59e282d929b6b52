//go:build js_eval

package story

import (
	"github.com/dop251/goja"
)

// jsEngine runs expressions as JavaScript through goja. Each run gets a fresh
// VM seeded with the flattened environment.
type jsEngine struct {
	functions *FunctionRegistry
}

// NewJSEvaluator returns an Evaluator backed by goja.
func NewJSEvaluator(opts ...EngineOption) Evaluator {
	cfg := newEngineConfig(opts)
	return newEngineEvaluator(EngineJS, jsEngine{functions: cfg.functions}, cfg)
}

func (e jsEngine) compile(src string) (any, error) {
	return goja.Compile("", "(function(){ return ("+src+"); })()", false)
}

func (e jsEngine) run(program any, ctx RuleContext) (any, error) {
	compiled, ok := program.(*goja.Program)
	if !ok {
		return nil, unexpectedProgram(EngineJS, program)
	}
	vm := goja.New()
	for key, value := range environment(ctx, e.functions) {
		if err := vm.Set(key, value); err != nil {
			return nil, err
		}
	}
	value, err := vm.RunProgram(compiled)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}
