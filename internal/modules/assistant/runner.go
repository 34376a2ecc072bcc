package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/modular-ai/core/internal/models"
	"go.uber.org/zap"
)

// Runner resolves a module's configuration and executes it against the
// upstream chat API.
type Runner struct {
	modules ModuleStore
	modelStore ModelStore
	pages   PageStore
	chat    *ChatClient
	log     *zap.Logger
}

func NewRunner(modules ModuleStore, modelStore ModelStore, pages PageStore, chat *ChatClient, log *zap.Logger) *Runner {
	return &Runner{
		modules: modules,
		modelStore: modelStore,
		pages:   pages,
		chat:    chat,
		log:     log,
	}
}

// FindModule loads a module or returns the canonical not-found error.
func (r *Runner) FindModule(ctx context.Context, id int64) (*models.ModuleModel, *RunError) {
	module, err := r.modules.FindModule(ctx, id)
	if err != nil {
		r.log.Error("module lookup failed", zap.Int64("module_id", id), zap.Error(err))
		return nil, newRunError("module_not_found", "Module not found.", http.StatusNotFound)
	}
	if module == nil {
		return nil, newRunError("module_not_found", "Module not found.", http.StatusNotFound)
	}
	return module, nil
}

func (r *Runner) findModel(ctx context.Context, module *models.ModuleModel) (*models.ModelModel, *RunError) {
	model, err := r.modelStore.FindModel(ctx, module.ModelRef)
	if err != nil {
		r.log.Error("model lookup failed", zap.Int64("model_id", module.ModelRef), zap.Error(err))
		return nil, newRunError("model_not_found", "The model assigned to this module does not exist.", http.StatusBadRequest)
	}
	if model == nil {
		return nil, newRunError("model_not_found", "The model assigned to this module does not exist.", http.StatusBadRequest)
	}
	if !model.Active {
		msg := fmt.Sprintf("The model %q assigned to this module is inactive.", model.Title)
		return nil, newRunError("model_inactive", msg, http.StatusBadRequest)
	}
	return model, nil
}

// ResolveStreaming applies the streaming decision hierarchy: an explicit
// request override wins, then the module's enabled/disabled setting, then
// the model's default. A missing model never streams.
func ResolveStreaming(requested *bool, module *models.ModuleModel, model *models.ModelModel) bool {
	if requested != nil {
		return *requested
	}
	if module != nil {
		switch module.StreamingOverride {
		case models.StreamingEnabled:
			return true
		case models.StreamingDisabled:
			return false
		}
	}
	if model == nil {
		return false
	}
	return model.Streaming
}

// ResolveStreamingFor resolves the effective streaming mode for a request
// before execution, so callers can pick the matching cache representation.
func (r *Runner) ResolveStreamingFor(ctx context.Context, module *models.ModuleModel, requested *bool) bool {
	model, err := r.modelStore.FindModel(ctx, module.ModelRef)
	if err != nil || model == nil || !model.Active {
		model = nil
	}
	return ResolveStreaming(requested, module, model)
}

// Run executes a module. For buffered requests the returned result carries
// the formatted content; for streaming requests it carries an open upstream
// stream plus everything the re-framer needs.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, *RunError) {
	module, runErr := r.FindModule(ctx, req.ModuleID)
	if runErr != nil {
		return nil, runErr
	}

	model, runErr := r.findModel(ctx, module)
	if runErr != nil {
		return nil, runErr
	}

	userContent := r.resolveUserContent(ctx, module, req.Query, req.ContextID)
	messages := buildMessages(module.System, userContent)
	streaming := ResolveStreaming(req.StreamingOverride, module, model)

	result := &RunResult{
		Streaming: streaming,
		Module:    module,
		Model:     model,
		Messages:  messages,
		ShowCurl:  req.ShowCurl,
	}
	if req.ShowCurl {
		result.CurlPreview = CurlPreview(model, messages, streaming)
	}

	if streaming {
		stream, runErr := r.chat.OpenStream(ctx, model, messages)
		if runErr != nil {
			return nil, runErr
		}
		result.Stream = stream
		return result, nil
	}

	resp, runErr := r.chat.Chat(ctx, model, messages)
	if runErr != nil {
		return nil, runErr
	}
	result.Content, result.Format = formatResponse(resp.Text, module.MarkdownEnabled, module.Output)
	return result, nil
}

func buildMessages(system, user string) []ChatMessage {
	msgs := make([]ChatMessage, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, ChatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, ChatMessage{Role: "user", Content: user})
	return msgs
}

// CurlPreview renders the upstream request as a runnable curl command with
// the API key masked.
func CurlPreview(model *models.ModelModel, messages []ChatMessage, streaming bool) string {
	payload := map[string]any{
		"model":    model.ModelID,
		"messages": messages,
	}
	if streaming {
		payload["stream"] = true
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("curl -X POST \\\n")
	fmt.Fprintf(&b, "  %s \\\n", shellQuote(model.Endpoint))
	b.WriteString("  -H 'Content-Type: application/json' \\\n")
	b.WriteString("  -H 'Authorization: Bearer [API_KEY]' \\\n")
	fmt.Fprintf(&b, "  -d %s", shellQuote(string(body)))
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
