// Package hydrate turns character attribute maps into typed structs through
// their JSON field names.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Context identifies the character being decoded.
type Context struct {
	Kind string
	ID   string
}

func (c Context) String() string {
	if c.ID == "" {
		return c.Kind
	}
	return c.Kind + "#" + c.ID
}

// PreHook may rewrite the attribute map before decoding. It receives a copy
// it is free to mutate.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or checks the decoded value.
type PostHook[T any] func(Context, *T) error

// Option configures a Decoder.
type Option[T any] func(*Decoder[T])

// Decoder decodes attribute maps into T.
type Decoder[T any] struct {
	pre       []PreHook
	post      []PostHook[T]
	strict    bool
	useNumber bool
}

// WithPreHook runs hook before decoding. Hooks run in registration order.
func WithPreHook[T any](hook PreHook) Option[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

// WithPostHook runs hook on the decoded value.
func WithPostHook[T any](hook PostHook[T]) Option[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// Strict fails on attributes T has no field for.
func Strict[T any]() Option[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// UseNumber keeps numbers as json.Number when decoding into interfaces.
func UseNumber[T any]() Option[T] {
	return func(d *Decoder[T]) {
		d.useNumber = true
	}
}

// New returns a decoder for T.
func New[T any](opts ...Option[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode copies attrs into a new T. attrs itself is never modified.
func (d *Decoder[T]) Decode(ctx Context, attrs map[string]any) (T, error) {
	var out T
	if attrs == nil {
		return out, fmt.Errorf("hydrate: %s has no attributes", ctx)
	}

	payload := maps.Clone(attrs)
	for _, hook := range d.pre {
		next, err := hook(ctx, payload)
		if err != nil {
			return out, fmt.Errorf("hydrate: pre-hook for %s: %w", ctx, err)
		}
		if next != nil {
			payload = next
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("hydrate: encode %s: %w", ctx, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	if d.useNumber {
		dec.UseNumber()
	}
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("hydrate: decode %s: %w", ctx, err)
	}

	for _, hook := range d.post {
		if err := hook(ctx, &out); err != nil {
			return out, fmt.Errorf("hydrate: post-hook for %s: %w", ctx, err)
		}
	}
	return out, nil
}
