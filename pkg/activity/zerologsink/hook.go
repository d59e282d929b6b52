// Package zerologsink writes build events as structured zerolog lines.
package zerologsink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-story/pkg/activity"
)

// Hook logs every event it receives.
type Hook struct {
	Logger zerolog.Logger
	// Level defaults to debug.
	Level zerolog.Level
}

// New returns a hook writing to logger at debug level.
func New(logger zerolog.Logger) Hook {
	return Hook{Logger: logger, Level: zerolog.DebugLevel}
}

// Notify writes one line with verb, character and details fields.
func (h Hook) Notify(_ context.Context, event activity.Event) error {
	level := h.Level
	if level == zerolog.NoLevel {
		level = zerolog.DebugLevel
	}
	evt := h.Logger.WithLevel(level).
		Str("verb", event.Verb).
		Str("character", event.Character)
	if len(event.Details) > 0 {
		evt = evt.Strs("details", event.Details)
	}
	if event.Channel != "" {
		evt = evt.Str("channel", event.Channel)
	}
	if len(event.Metadata) > 0 {
		evt = evt.Fields(event.Metadata)
	}
	if !event.OccurredAt.IsZero() {
		evt = evt.Time("occurred_at", event.OccurredAt)
	}
	evt.Msg(event.Line())
	return nil
}
