package assistant

import (
	"context"
	"strings"
	"testing"

	"github.com/modular-ai/core/internal/models"
)

func int64Ptr(v int64) *int64 { return &v }

func TestResolveUserContent(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		pages: map[int64]*models.PageModel{
			7: {
				Base:    models.Base{ID: 7},
				Title:   "Release Notes",
				Excerpt: "What changed",
				Text:    "Everything is faster now.",
			},
		},
	}
	runner := newTestRunner(store)
	ctx := context.Background()

	t.Run("explicit query wins", func(t *testing.T) {
		t.Parallel()
		module := &models.ModuleModel{UserPromptType: models.PromptSourcePageContent}
		got := runner.resolveUserContent(ctx, module, "what is this?", int64Ptr(7))
		if got != "what is this?" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("custom text", func(t *testing.T) {
		t.Parallel()
		module := &models.ModuleModel{UserPromptType: models.PromptSourceCustom, User: "Fixed prompt."}
		if got := runner.resolveUserContent(ctx, module, "", nil); got != "Fixed prompt." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("page content composes title excerpt text", func(t *testing.T) {
		t.Parallel()
		module := &models.ModuleModel{UserPromptType: models.PromptSourcePageContent}
		got := runner.resolveUserContent(ctx, module, "", int64Ptr(7))
		for _, part := range []string{"Release Notes", "What changed", "Everything is faster now."} {
			if !strings.Contains(got, part) {
				t.Errorf("missing %q in %q", part, got)
			}
		}
	})

	t.Run("page title source", func(t *testing.T) {
		t.Parallel()
		module := &models.ModuleModel{UserPromptType: models.PromptSourcePageTitle}
		if got := runner.resolveUserContent(ctx, module, "", int64Ptr(7)); got != "Release Notes" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("page excerpt source", func(t *testing.T) {
		t.Parallel()
		module := &models.ModuleModel{UserPromptType: models.PromptSourcePageExcerpt}
		if got := runner.resolveUserContent(ctx, module, "", int64Ptr(7)); got != "What changed" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("empty custom falls back to page content", func(t *testing.T) {
		t.Parallel()
		module := &models.ModuleModel{UserPromptType: models.PromptSourceCustom, User: "  "}
		got := runner.resolveUserContent(ctx, module, "", int64Ptr(7))
		if !strings.Contains(got, "Everything is faster now.") {
			t.Errorf("got %q", got)
		}
	})

	t.Run("everything empty yields fixed instruction", func(t *testing.T) {
		t.Parallel()
		module := &models.ModuleModel{UserPromptType: models.PromptSourceCustom}
		if got := runner.resolveUserContent(ctx, module, "", nil); got != fallbackInstruction {
			t.Errorf("got %q", got)
		}
	})

	t.Run("missing page yields fixed instruction", func(t *testing.T) {
		t.Parallel()
		module := &models.ModuleModel{UserPromptType: models.PromptSourcePageContent}
		if got := runner.resolveUserContent(ctx, module, "", int64Ptr(999)); got != fallbackInstruction {
			t.Errorf("got %q", got)
		}
	})
}
