package story

import "github.com/goliatone/go-story/pkg/activity"

// WithActivityHooks attaches activity hooks to the runtime logger.
// Hooks are cloned and nil entries dropped to preserve immutability.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *runtimeConfig) {
		cfg.activityHooks = normalized
	}
}

// ActivityHooks returns a cloned slice of the activity hooks configured on
// the runtime. The returned slice can be safely mutated by the caller.
func (rt *Runtime) ActivityHooks() activity.Hooks {
	if rt == nil {
		return nil
	}
	return cloneActivityHooks(rt.cfg.activityHooks)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

func buildLogger(cfg runtimeConfig) *activity.Logger {
	if cfg.logger == nil {
		return activity.NewLogger(cfg.activityHooks, activity.Config{})
	}
	if len(cfg.activityHooks) > 0 {
		cfg.logger.AddHooks(cfg.activityHooks...)
	}
	return cfg.logger
}
