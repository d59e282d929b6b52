package story

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-story/model"
)

var (
	// ErrUsage marks calls the story cannot honour as made.
	ErrUsage = errors.New("story: usage error")
	// ErrRedefinition marks a fill registered twice in one scope.
	ErrRedefinition = errors.New("story: redefinition")
	// ErrValidation marks a character that failed to persist.
	ErrValidation = errors.New("story: validation failed")
)

// UsageError reports a call made in the wrong place or with a key the story
// does not know.
type UsageError struct {
	Op  string
	Key string
	Msg string
}

func (e *UsageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Key == "" {
		return fmt.Sprintf("story: %s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("story: %s %s: %s", e.Op, e.Key, e.Msg)
}

func (e *UsageError) Is(target error) bool {
	return target == ErrUsage
}

// RedefinitionError reports a second fill of the same key in one scope.
type RedefinitionError struct {
	Key string
}

func (e *RedefinitionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("story: %s already defined for this story", e.Key)
}

func (e *RedefinitionError) Is(target error) bool {
	return target == ErrRedefinition
}

// ValidationFailure reports a batch member that did not persist after the
// repair pass. Err is the store error when there was one.
type ValidationFailure struct {
	Entity *model.Entity
	Fields []string
	Err    error
}

func (e *ValidationFailure) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("story: %s was not saved", e.Entity)
	if len(e.Fields) > 0 {
		msg += ", invalid " + strings.Join(e.Fields, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationFailure) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ValidationFailure) Is(target error) bool {
	return target == ErrValidation
}

func usageError(op, key, format string, args ...any) error {
	return &UsageError{Op: op, Key: key, Msg: fmt.Sprintf(format, args...)}
}
