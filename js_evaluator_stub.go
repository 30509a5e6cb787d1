//go:build !js_eval

package decisions

// NewJSEvaluator returns nil unless the binary is built with the js_eval tag.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}
