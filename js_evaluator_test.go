//go:build js_eval

package story

import "testing"

func TestJSEvaluatorReadsAttributes(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("shout", func(args ...any) (any, error) {
		return args[0].(string) + "!", nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ev := NewJSEvaluator(EngineFunctions(registry))

	got, err := ev.Evaluate(RuleContext{
		Kind:     "user",
		Seq:      7,
		Snapshot: map[string]any{"first_name": "Ada"},
	}, "shout(first_name) + ' #' + seq")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != "Ada! #7" {
		t.Fatalf("expected %q, got %v", "Ada! #7", got)
	}
}

func TestJSEvaluatorSyntaxError(t *testing.T) {
	_, err := NewJSEvaluator().Compile("1 +")
	if err == nil {
		t.Fatalf("expected a compile error")
	}
}
