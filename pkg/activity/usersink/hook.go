// Package usersink forwards build events into a go-users activity feed, so
// fixture builds show up next to the activity of the users they create.
package usersink

import (
	"context"
	"slices"
	"strings"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"

	"github.com/goliatone/go-story/pkg/activity"
)

const (
	// VerbPrefix namespaces build verbs in the users activity feed.
	VerbPrefix = "story."
	// ObjectType is recorded when an event names no persisted character.
	ObjectType = "character"
)

// Hook adapts build events to a go-users ActivitySink. Verbs limits the
// forwarded verbs; empty forwards every verb.
type Hook struct {
	Sink  usertypes.ActivitySink
	Verbs []string
}

// New returns a hook forwarding saving events only.
func New(sink usertypes.ActivitySink) Hook {
	return Hook{Sink: sink, Verbs: []string{activity.VerbSaving}}
}

// Notify maps the event into an ActivityRecord. The first detail rendered as
// "kind#id" becomes the record's object; otherwise the object is the
// character key.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.NormalizeEvent(event)
	if event.Verb == "" || event.Character == "" {
		return nil
	}
	if len(h.Verbs) > 0 && !slices.Contains(h.Verbs, event.Verb) {
		return nil
	}

	objectType, objectID := ObjectType, event.Character
	if kind, id, ok := reference(event.Details); ok {
		objectType, objectID = kind, id
	}

	data := map[string]any{"character": event.Character}
	for key, value := range event.Metadata {
		data[key] = value
	}
	if len(event.Details) > 0 {
		data["details"] = event.Details
	}

	return h.Sink.Log(ctx, usertypes.ActivityRecord{
		ActorID:    parseUUID(event.ActorID),
		TenantID:   parseUUID(event.TenantID),
		Verb:       VerbPrefix + event.Verb,
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    event.Channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	})
}

// reference finds the first persisted entity rendering ("page#<id>").
func reference(details []string) (string, string, bool) {
	for _, detail := range details {
		kind, id, ok := strings.Cut(detail, "#")
		if ok && kind != "" && id != "" && !strings.ContainsAny(kind, " |") {
			return kind, id, true
		}
	}
	return "", "", false
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
