//go:build !js_eval

package story

// NewJSEvaluator returns nil unless the module is built with the js_eval tag.
func NewJSEvaluator(...EngineOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
