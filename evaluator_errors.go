package story

import (
	"errors"
	"strconv"
	"strings"
)

var errEmptyExpression = errors.New("expression must not be empty")

// EvaluationError reports a lazy value that failed to compile or run.
// Engine is "lambda" for Lambda values. Character names the attribute being
// computed ("user.email") and is empty for compile errors outside a build.
type EvaluationError struct {
	Engine    string
	Expr      string
	Character string
	Err       error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("story: ")
	b.WriteString(e.Engine)
	if e.Character != "" {
		b.WriteString(" ")
		b.WriteString(e.Character)
	}
	if e.Expr != "" {
		b.WriteString(" ")
		b.WriteString(strconv.Quote(e.Expr))
	}
	b.WriteString(": ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapEvaluationError attaches evaluation metadata to err. An EvaluationError
// already in the chain only gets its empty fields filled.
func wrapEvaluationError(engine, expr, character string, err error) error {
	if err == nil {
		return nil
	}
	var existing *EvaluationError
	if !errors.As(err, &existing) {
		return &EvaluationError{Engine: engine, Expr: expr, Character: character, Err: err}
	}
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&existing.Engine, engine},
		{&existing.Expr, expr},
		{&existing.Character, character},
	} {
		if *f.dst == "" {
			*f.dst = f.src
		}
	}
	return existing
}
