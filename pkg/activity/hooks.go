package activity

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Event describes one step of a character build. Character is the key the
// step concerns (a kind or an alias) and Details carries the rendered
// arguments in call order.
type Event struct {
	Verb       string
	Character  string
	Details    []string
	ActorID    string
	TenantID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Line renders the event the way the console logger prints it:
// "character: verb | detail | detail".
func (e Event) Line() string {
	var b strings.Builder
	b.WriteString(e.Character)
	b.WriteString(": ")
	b.WriteString(e.Verb)
	for _, detail := range e.Details {
		b.WriteString(" | ")
		b.WriteString(detail)
	}
	return b.String()
}

func (e Event) routable() bool {
	return e.Verb != "" && e.Character != ""
}

// NormalizeEvent returns a copy of event that shares no slices or maps with
// it, with identifiers trimmed and OccurredAt stamped when missing.
func NormalizeEvent(event Event) Event {
	for _, field := range []*string{&event.Verb, &event.Character, &event.ActorID, &event.TenantID, &event.Channel} {
		*field = strings.TrimSpace(*field)
	}
	event.Details = slices.Clone(event.Details)
	if len(event.Details) == 0 {
		event.Details = nil
	}
	event.Metadata = maps.Clone(event.Metadata)
	if len(event.Metadata) == 0 {
		event.Metadata = nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	return event
}

// ActivityHook receives build events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify calls fn.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks is an ordered set of sinks.
type Hooks []ActivityHook

// Enabled reports whether any hook is attached.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify hands the normalized event to every hook in order. Events missing
// a verb or character are dropped. A hook that fails or panics does not stop
// the others; their errors come back joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if !h.Enabled() {
		return nil
	}
	event = NormalizeEvent(event)
	if !event.routable() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	for i, hook := range h {
		if hook == nil {
			continue
		}
		errs = append(errs, notifyOne(ctx, i, hook, event))
	}
	return errors.Join(errs...)
}

func notifyOne(ctx context.Context, index int, hook ActivityHook, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("activity: hook %d panicked on %s: %v", index, event.Verb, r)
		}
	}()
	return hook.Notify(ctx, event)
}
