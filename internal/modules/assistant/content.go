package assistant

import (
	"context"
	"strings"

	"github.com/modular-ai/core/internal/models"
)

// fallbackInstruction is the user turn of last resort; the chat client is
// never called with an empty user message.
const fallbackInstruction = "Analyze the content on this page."

// resolveUserContent determines the user-turn text for an execution.
// An explicit query always wins; otherwise the module's prompt source kind
// decides, degrading to page content and finally a fixed instruction.
func (r *Runner) resolveUserContent(ctx context.Context, module *models.ModuleModel, query string, contextID *int64) string {
	if strings.TrimSpace(query) != "" {
		return query
	}

	content := r.contentForSource(ctx, module.UserPromptType, module.User, contextID)

	if content == "" && module.UserPromptType == models.PromptSourceCustom {
		content = r.contentForSource(ctx, models.PromptSourcePageContent, "", contextID)
	}
	if content == "" {
		content = fallbackInstruction
	}
	return content
}

func (r *Runner) contentForSource(ctx context.Context, sourceKind, customText string, contextID *int64) string {
	switch sourceKind {
	case models.PromptSourcePageContent:
		return r.pageContent(ctx, contextID)
	case models.PromptSourcePageTitle:
		if page := r.findPage(ctx, contextID); page != nil {
			return strings.TrimSpace(page.Title)
		}
		return ""
	case models.PromptSourcePageExcerpt:
		if page := r.findPage(ctx, contextID); page != nil {
			return strings.TrimSpace(page.Excerpt)
		}
		return ""
	default:
		return strings.TrimSpace(customText)
	}
}

// pageContent composes title, excerpt and body text of the context page.
func (r *Runner) pageContent(ctx context.Context, contextID *int64) string {
	page := r.findPage(ctx, contextID)
	if page == nil {
		return ""
	}

	var b strings.Builder
	if title := strings.TrimSpace(page.Title); title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	if excerpt := strings.TrimSpace(page.Excerpt); excerpt != "" {
		b.WriteString(excerpt)
		b.WriteString("\n\n")
	}
	b.WriteString(page.Text)
	return strings.TrimSpace(b.String())
}

func (r *Runner) findPage(ctx context.Context, contextID *int64) *models.PageModel {
	if contextID == nil || *contextID <= 0 {
		return nil
	}
	page, err := r.pages.FindPage(ctx, *contextID)
	if err != nil {
		return nil
	}
	return page
}
