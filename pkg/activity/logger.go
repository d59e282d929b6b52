package activity

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Build event verbs.
const (
	VerbSaving              = "saving"
	VerbBuilding            = "building"
	VerbFixingErrors        = "fixing_errors"
	VerbFinalValue          = "final_value"
	VerbSettingAssociation  = "setting_association"
	VerbSetting             = "setting"
	VerbAdditionalCharacter = "additional_character"
	VerbDiagnostic          = "diagnostic"
)

// Verbs lists every verb a story emits.
func Verbs() []string {
	return []string{
		VerbSaving,
		VerbBuilding,
		VerbFixingErrors,
		VerbFinalValue,
		VerbSettingAssociation,
		VerbSetting,
		VerbAdditionalCharacter,
		VerbDiagnostic,
	}
}

// IsVerb reports whether name is a known verb.
func IsVerb(name string) bool {
	return slices.Contains(Verbs(), name)
}

// Config controls logger defaults supplied by DI/config.
type Config struct {
	Channel  string
	ActorID  string
	TenantID string
	// Only restricts output, see Logger.Only. Empty means everything.
	Only []string
}

// Logger filters build events by verb and character and fans the survivors
// out to hooks. Logging never fails: hook errors go to the error handler.
type Logger struct {
	mu         sync.RWMutex
	hooks      Hooks
	cfg        Config
	verbs      map[string]struct{}
	characters map[string]struct{}
	onError    func(error)
}

// NewLogger constructs a logger that lets every event through.
func NewLogger(hooks Hooks, cfg Config) *Logger {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = "story"
	}
	cfg.Channel = channel
	l := &Logger{hooks: cloneHooks(hooks), cfg: cfg}
	l.On()
	if len(cfg.Only) > 0 {
		l.Only(cfg.Only...)
	}
	return l
}

// Discard returns a logger without hooks.
func Discard() *Logger {
	return NewLogger(nil, Config{})
}

// OnError installs the handler receiving hook failures.
func (l *Logger) OnError(fn func(error)) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onError = fn
	return l
}

// AddHooks appends hooks.
func (l *Logger) AddHooks(hooks ...ActivityHook) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, cloneHooks(hooks)...)
	return l
}

// Only restricts logging. Items that name a verb select verbs (all verbs
// when none is named); every other item names a character, and when any is
// given only those characters are logged.
func (l *Logger) Only(items ...string) *Logger {
	verbs := map[string]struct{}{}
	characters := map[string]struct{}{}
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if IsVerb(item) {
			verbs[item] = struct{}{}
			continue
		}
		characters[item] = struct{}{}
	}
	if len(verbs) == 0 {
		for _, verb := range Verbs() {
			verbs[verb] = struct{}{}
		}
	}
	if len(characters) == 0 {
		characters = nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbs = verbs
	l.characters = characters
	return l
}

// On lets every event through.
func (l *Logger) On() *Logger {
	return l.Only()
}

// Off silences the logger.
func (l *Logger) Off() *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbs = map[string]struct{}{}
	l.characters = nil
	return l
}

// Allows reports whether an event would pass the filter.
func (l *Logger) Allows(verb, character string) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allows(verb, character)
}

func (l *Logger) allows(verb, character string) bool {
	if _, ok := l.verbs[verb]; !ok {
		return false
	}
	if l.characters == nil {
		return true
	}
	_, ok := l.characters[character]
	return ok
}

// Log records one event. Details are rendered with fmt.Sprint.
func (l *Logger) Log(ctx context.Context, verb, character string, details ...any) {
	if l == nil {
		return
	}
	l.mu.RLock()
	if !l.allows(verb, character) || !l.hooks.Enabled() {
		l.mu.RUnlock()
		return
	}
	hooks := l.hooks
	cfg := l.cfg
	onError := l.onError
	l.mu.RUnlock()

	rendered := make([]string, 0, len(details))
	for _, d := range details {
		rendered = append(rendered, fmt.Sprint(d))
	}
	err := hooks.Notify(ctx, Event{
		Verb:      verb,
		Character: character,
		Details:   rendered,
		ActorID:   cfg.ActorID,
		TenantID:  cfg.TenantID,
		Channel:   cfg.Channel,
	})
	if err != nil && onError != nil {
		onError(err)
	}
}

func cloneHooks(hooks Hooks) Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	return Hooks(normalized)
}
