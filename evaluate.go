package story

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-story/model"
)

var ErrNoEvaluator = errors.New("story: evaluator not configured")

// Lambda computes an attribute value while the character is being built.
type Lambda func(BuildContext) (any, error)

// Expr is an attribute value computed by the runtime's Evaluator.
type Expr string

// BuildContext describes the attribute a lazy value is computed for.
type BuildContext struct {
	Context   context.Context
	Scope     *Scope
	Entity    *model.Entity
	Kind      string
	Character string
	Field     string
	Seq       int
	Now       time.Time
}

func (bc BuildContext) context() context.Context {
	if bc.Context == nil {
		return context.Background()
	}
	return bc.Context
}

func (bc BuildContext) label() string {
	return RuleContext{Kind: bc.Kind, Character: bc.Character, Field: bc.Field}.label()
}

// resolve turns lazy values into concrete ones and passes anything else
// through.
func (rt *Runtime) resolve(bc BuildContext, value any) (any, error) {
	switch v := value.(type) {
	case Lambda:
		return rt.call(bc, v)
	case func(BuildContext) (any, error):
		return rt.call(bc, v)
	case Expr:
		return rt.Evaluate(bc, string(v))
	}
	return value, nil
}

func (rt *Runtime) call(bc BuildContext, fn func(BuildContext) (any, error)) (any, error) {
	if fn == nil {
		return nil, nil
	}
	value, err := fn(bc)
	if err != nil {
		return nil, wrapEvaluationError("lambda", "", bc.label(), err)
	}
	return value, nil
}

// Evaluate runs expr for the attribute described by bc.
func (rt *Runtime) Evaluate(bc BuildContext, expr string) (any, error) {
	if rt.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	now := bc.Now
	if now.IsZero() {
		now = rt.cfg.now()
	}
	ctx := RuleContext{
		Now:       &now,
		Args:      rt.cfg.args,
		Metadata:  rt.cfg.metadata,
		Kind:      bc.Kind,
		Character: bc.Character,
		Field:     bc.Field,
		Seq:       bc.Seq,
	}
	if bc.Entity != nil {
		ctx.Snapshot = bc.Entity.Attributes()
	}
	ctx = ctx.withDefaults()
	engine := evaluatorEngineName(rt.evaluator)
	start := time.Now()
	value, err := rt.evaluator.Evaluate(ctx, expr)
	err = wrapEvaluationError(engine, expr, ctx.label(), err)
	rt.evalLogger.LogEvaluation(bc.context(), EvaluatorLogEvent{
		Engine:    engine,
		Expr:      expr,
		Kind:      bc.Kind,
		Character: ctx.label(),
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// compile checks every Expr among attrs before a fill is registered, so a
// syntax error surfaces at the Fill call and not at the first build.
func (rt *Runtime) compile(key string, attrs []Attr) error {
	for _, attr := range attrs {
		expr, ok := attr.Value.(Expr)
		if !ok {
			continue
		}
		if rt.evaluator == nil {
			return ErrNoEvaluator
		}
		if _, err := rt.evaluator.Compile(string(expr)); err != nil {
			return wrapEvaluationError(evaluatorEngineName(rt.evaluator), string(expr), key+"."+attr.Name, err)
		}
	}
	return nil
}

func evaluatorEngineName(e Evaluator) string {
	if named, ok := e.(interface{ Engine() string }); ok {
		return named.Engine()
	}
	return "custom"
}
