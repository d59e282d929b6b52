package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Rollback selects what closing a scope undoes.
type Rollback int

const (
	// RollbackNone keeps everything built in the scope. Entities borrowed
	// from the parent scope are still restored.
	RollbackNone Rollback = iota
	// RollbackSnapshot restores every entity borrowed from the parent scope.
	RollbackSnapshot
	// RollbackHard restores borrowed entities and deletes every entity the
	// scope built, in build order.
	RollbackHard
)

func (r Rollback) String() string {
	switch r {
	case RollbackNone:
		return "none"
	case RollbackSnapshot:
		return "snapshot"
	case RollbackHard:
		return "hard"
	default:
		return fmt.Sprintf("rollback(%d)", int(r))
	}
}

// ParseRollback maps "none", "snapshot" and "hard" to a Rollback.
func ParseRollback(name string) (Rollback, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return RollbackNone, nil
	case "snapshot":
		return RollbackSnapshot, nil
	case "hard":
		return RollbackHard, nil
	default:
		return RollbackNone, fmt.Errorf("story: unknown rollback %q", name)
	}
}

// Chain is one goroutine's stack of open scopes. A chain must not be shared
// between goroutines; open one per goroutine with Runtime.Chain.
type Chain struct {
	rt    *Runtime
	stack []*Scope
}

// Runtime returns the runtime the chain was opened on.
func (c *Chain) Runtime() *Runtime {
	return c.rt
}

// Current returns the innermost open scope, or the root scope.
func (c *Chain) Current() *Scope {
	if n := len(c.stack); n > 0 {
		return c.stack[n-1]
	}
	return c.rt.root
}

// Depth counts the open scopes.
func (c *Chain) Depth() int {
	return len(c.stack)
}

// Open pushes a scope parented to the current one. Opening the first scope
// over the root freezes the root.
func (c *Chain) Open() *Scope {
	parent := c.Current()
	if parent == c.rt.root {
		c.rt.frozen.Store(true)
	}
	s := newScope(c.rt, parent)
	c.stack = append(c.stack, s)
	return s
}

// Close pops the current scope, restores what it borrowed and, for
// RollbackHard, deletes what it built. Delete failures are joined; the scope
// is popped regardless.
func (c *Chain) Close(ctx context.Context, rollback Rollback) error {
	n := len(c.stack)
	if n == 0 {
		return usageError("close", "", "no open scope")
	}
	s := c.stack[n-1]
	c.stack[n-1] = nil
	c.stack = c.stack[:n-1]
	return s.rollback(ctx, rollback)
}

// Within opens a scope, runs fn in it and closes the scope on every exit
// path, panics included. fn's error wins over the close error.
func (c *Chain) Within(ctx context.Context, rollback Rollback, fn func(*Scope) error) (err error) {
	s := c.Open()
	defer func() {
		closeErr := c.Close(ctx, rollback)
		if err == nil {
			err = closeErr
		}
	}()
	if fn == nil {
		return nil
	}
	return fn(s)
}

// Run is Within with the runtime's default rollback.
func (c *Chain) Run(ctx context.Context, fn func(*Scope) error) error {
	return c.Within(ctx, c.rt.DefaultRollback(), fn)
}

// Tell is Within for bodies that produce a value.
func Tell[T any](ctx context.Context, c *Chain, rollback Rollback, fn func(*Scope) (T, error)) (T, error) {
	var out T
	err := c.Within(ctx, rollback, func(s *Scope) error {
		var err error
		out, err = fn(s)
		return err
	})
	return out, err
}

func (s *Scope) rollback(ctx context.Context, rollback Rollback) error {
	s.scribe.RestoreAll()
	if rollback != RollbackHard {
		return nil
	}
	var errs []error
	for _, e := range s.built {
		if err := s.rt.store.Delete(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	s.built = nil
	return errors.Join(errs...)
}
