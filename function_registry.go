package story

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-story/model"
)

// Function is a helper callable from expressions, by name or through
// call(name, args...).
type Function func(args ...any) (any, error)

// FunctionRegistry holds expression helpers. Names are case-insensitive.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]Function{}}
}

// Register adds fn under name. A name can only be registered once.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case key == "":
		return fmt.Errorf("story: function name must not be empty")
	case fn == nil:
		return fmt.Errorf("story: function %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]Function{}
	}
	if _, taken := r.functions[key]; taken {
		return fmt.Errorf("story: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns an independent copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	functions := maps.Clone(r.functions)
	if functions == nil {
		functions = map[string]Function{}
	}
	return &FunctionRegistry{functions: functions}
}

func (r *FunctionRegistry) lookup(name string) (Function, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[strings.ToLower(name)]
	return fn, ok
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	fn, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("story: function %q not registered", name)
	}
	return fn(args...)
}

// bind returns a Function calling name through the registry, so later
// registrations stay visible to compiled programs.
func (r *FunctionRegistry) bind(name string) Function {
	return func(args ...any) (any, error) {
		return r.Call(name, args...)
	}
}

// Names lists registered names in order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.functions))
}

// WithFunctionRegistry replaces the functions callable from expressions,
// builtins included.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *runtimeConfig) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

// WithCustomFunction registers fn under name next to the builtins. A name
// that is already taken is ignored.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *runtimeConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// builtinFunctions exposes the naming helpers the builder itself uses.
func builtinFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	_ = r.Register("humanize", stringFunction("humanize", model.Humanize))
	_ = r.Register("underscore", stringFunction("underscore", model.Underscore))
	_ = r.Register("sprintf", sprintf)
	return r
}

func sprintf(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("story: sprintf requires a format")
	}
	format, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("story: sprintf format must be string, got %T", args[0])
	}
	return fmt.Sprintf(format, args[1:]...), nil
}

func stringFunction(name string, fn func(string) string) Function {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("story: %s takes one argument, got %d", name, len(args))
		}
		return fn(fmt.Sprint(args[0])), nil
	}
}
