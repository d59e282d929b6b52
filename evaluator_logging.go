package story

import (
	"context"
	"time"

	"github.com/goliatone/go-story/pkg/activity"
)

// EvaluatorLogEvent describes one evaluation of an Expr value. Character
// names the attribute ("user.email").
type EvaluatorLogEvent struct {
	Engine    string
	Expr      string
	Kind      string
	Character string
	Duration  time.Duration
	Err       error
}

// EvaluatorLogger records evaluations.
type EvaluatorLogger interface {
	LogEvaluation(ctx context.Context, event EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(context.Context, EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(ctx context.Context, event EvaluatorLogEvent) {
	if f != nil {
		f(ctx, event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(context.Context, EvaluatorLogEvent) {}

// ActivityEvaluatorLogger reports failed evaluations to logger as diagnostic
// events of the character's kind. It is the runtime default.
func ActivityEvaluatorLogger(logger *activity.Logger) EvaluatorLogger {
	return EvaluatorLoggerFunc(func(ctx context.Context, event EvaluatorLogEvent) {
		if event.Err == nil {
			return
		}
		logger.Log(ctx, activity.VerbDiagnostic, event.Kind, "evaluation failed", event.Character, event.Err)
	})
}

// WithEvaluatorLogger replaces the evaluation logger. nil silences it.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *runtimeConfig) {
		if logger == nil {
			cfg.evalLogger = noopEvaluatorLogger{}
			return
		}
		cfg.evalLogger = logger
	}
}
