// Package promsink counts build events with Prometheus.
package promsink

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-story/pkg/activity"
)

// Hook increments story_events_total for every event.
type Hook struct {
	Events *prometheus.CounterVec
}

// New registers the event counter on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Hook {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Hook{
		Events: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "story",
				Name:      "events_total",
				Help:      "Total number of character build events",
			},
			[]string{"verb", "character"},
		),
	}
}

// Notify counts the event.
func (h *Hook) Notify(_ context.Context, event activity.Event) error {
	if h == nil || h.Events == nil {
		return nil
	}
	h.Events.WithLabelValues(event.Verb, event.Character).Inc()
	return nil
}
