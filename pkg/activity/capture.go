package activity

import (
	"context"
	"sync"
)

// CaptureHook records events for assertions in tests.
type CaptureHook struct {
	Events []Event
	Err    error
	mu     sync.Mutex
}

// Notify records the event and returns any configured error.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, NormalizeEvent(event))
	return h.Err
}

// Snapshot returns a copy of the recorded events.
func (h *CaptureHook) Snapshot() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.Events...)
}

// Verbs lists the verbs recorded so far, optionally limited to one character.
func (h *CaptureHook) Verbs(character string) []string {
	var out []string
	for _, event := range h.Snapshot() {
		if character != "" && event.Character != character {
			continue
		}
		out = append(out, event.Verb)
	}
	return out
}

// Lines renders every recorded event with Event.Line.
func (h *CaptureHook) Lines() []string {
	events := h.Snapshot()
	out := make([]string, 0, len(events))
	for _, event := range events {
		out = append(out, event.Line())
	}
	return out
}

// Reset drops the recorded events.
func (h *CaptureHook) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = nil
}
