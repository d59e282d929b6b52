package story

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-story/model"
	"github.com/goliatone/go-story/pkg/activity"
)

func testRegistry(t *testing.T) *model.Registry {
	t.Helper()
	models, err := model.ParseFile("testdata/models.yaml")
	if err != nil {
		t.Fatalf("parse fixtures: %v", err)
	}
	return model.MustRegistry(models...)
}

func TestWithActivityHooksClonesAndFiltersNil(t *testing.T) {
	hook := activity.HookFunc(func(context.Context, activity.Event) error { return nil })

	rt, err := New(testRegistry(t), nil, WithActivityHooks(activity.Hooks{nil, hook}))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	hooks := rt.ActivityHooks()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}

	// Mutate returned slice and ensure original configuration is unaffected.
	hooks[0] = nil
	again := rt.ActivityHooks()
	if len(again) != 1 || again[0] == nil {
		t.Fatalf("expected cloned hooks unaffected by mutation, got %+v", again)
	}
}

func TestActivityHooksDefaultNil(t *testing.T) {
	rt, err := New(testRegistry(t), nil)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if hooks := rt.ActivityHooks(); hooks != nil {
		t.Fatalf("expected nil hooks by default, got %+v", hooks)
	}
}

func TestActivityHooksReceiveBuildEvents(t *testing.T) {
	capture := &activity.CaptureHook{}
	rt, err := New(testRegistry(t), nil, WithActivityHooks(activity.Hooks{capture}))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if _, err := rt.Root().Imagine(context.Background(), "user"); err != nil {
		t.Fatalf("imagine: %v", err)
	}
	verbs := capture.Verbs("user")
	if len(verbs) == 0 || verbs[0] != activity.VerbBuilding {
		t.Fatalf("expected building first, got %v", verbs)
	}
	if verbs[len(verbs)-1] != activity.VerbFinalValue {
		t.Fatalf("expected final_value last, got %v", verbs)
	}
}

func TestActivityHooksJoinExplicitLogger(t *testing.T) {
	first := &activity.CaptureHook{}
	second := &activity.CaptureHook{}
	logger := activity.NewLogger(activity.Hooks{first}, activity.Config{}).Only(activity.VerbSaving)

	rt, err := New(testRegistry(t), nil, WithLogger(logger), WithActivityHooks(activity.Hooks{second}))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if rt.Logger() != logger {
		t.Fatalf("expected the configured logger")
	}
	if _, err := rt.Root().Imagine(context.Background(), "user"); err != nil {
		t.Fatalf("imagine: %v", err)
	}
	for _, capture := range []*activity.CaptureHook{first, second} {
		lines := capture.Lines()
		if len(lines) != 1 || !strings.HasPrefix(lines[0], "user: saving") {
			t.Fatalf("expected a single saving line, got %v", lines)
		}
	}
}
