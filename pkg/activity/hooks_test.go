package activity

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNormalizeEvent(t *testing.T) {
	meta := map[string]any{"k": "v"}
	details := []string{"a", "b"}
	evt := Event{
		Verb:      " building ",
		Character: " page ",
		Details:   details,
		ActorID:   " actor ",
		Channel:   " story ",
		Metadata:  meta,
	}

	got := NormalizeEvent(evt)
	if got.Verb != "building" || got.Character != "page" || got.ActorID != "actor" || got.Channel != "story" {
		t.Fatalf("expected trimmed identifiers, got %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be stamped")
	}

	got.Metadata["k"] = "changed"
	got.Details[0] = "changed"
	if meta["k"] != "v" || details[0] != "a" {
		t.Fatalf("expected caller data untouched: %v %v", meta, details)
	}

	empty := NormalizeEvent(Event{Verb: "saving", Character: "page", Details: []string{}, Metadata: map[string]any{}})
	if empty.Details != nil || empty.Metadata != nil {
		t.Fatalf("expected empty collections to collapse to nil: %+v", empty)
	}
}

func TestHooksDropUnroutableEvents(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	for _, evt := range []Event{{Verb: "building"}, {Character: "page"}, {Verb: " ", Character: "page"}} {
		if err := hooks.Notify(context.Background(), evt); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	}
	if len(capture.Snapshot()) != 0 {
		t.Fatalf("expected every event to be dropped, got %v", capture.Lines())
	}
}

func TestHooksKeepNotifyingAfterFailures(t *testing.T) {
	capture := &CaptureHook{}
	boom := errors.New("boom")
	var sawContext bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, _ Event) error {
			sawContext = ctx != nil
			return boom
		}),
		nil,
		HookFunc(func(context.Context, Event) error { panic("sink down") }),
		capture,
	}

	err := hooks.Notify(nil, Event{Verb: "saving", Character: "page"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom in %v", err)
	}
	if !strings.Contains(err.Error(), "hook 2 panicked on saving: sink down") {
		t.Fatalf("expected panic report in %v", err)
	}
	if !sawContext {
		t.Fatalf("expected a non-nil context")
	}
	if got := capture.Lines(); len(got) != 1 || got[0] != "page: saving" {
		t.Fatalf("expected the last hook to still run, got %v", got)
	}
}

func TestEventLine(t *testing.T) {
	evt := Event{Verb: "setting", Character: "user", Details: []string{"name", "Example User"}}
	if got := evt.Line(); got != "user: setting | name | Example User" {
		t.Fatalf("unexpected line %q", got)
	}
	if got := (Event{Verb: "saving", Character: "user"}).Line(); got != "user: saving" {
		t.Fatalf("unexpected line %q", got)
	}
}
