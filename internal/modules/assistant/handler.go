package assistant

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/modular-ai/core/internal/middleware"
	"github.com/modular-ai/core/internal/models"
	"github.com/modular-ai/core/internal/modules/auth"
	"github.com/modular-ai/core/internal/pkg/response"
	"go.uber.org/zap"
)

// Lister provides the read-only catalog queries backing the public listing
// endpoints.
type Lister interface {
	ListPublicModules(ctx context.Context) ([]models.ModuleModel, error)
	ListActiveModels(ctx context.Context) ([]models.ModelModel, error)
}

type RunDTO struct {
	ModuleID  int64  `json:"module_id" binding:"required,gt=0"`
	Query     string `json:"query"`
	ContextID *int64 `json:"context_id"`
	Streaming *bool  `json:"streaming"`
	ShowCurl  bool   `json:"show_debug_preview"`
}

type runResponse struct {
	Success     bool   `json:"success"`
	Content     string `json:"content"`
	ModuleID    int64  `json:"module_id"`
	Streaming   bool   `json:"streaming"`
	Cached      bool   `json:"cached"`
	Format      string `json:"format"`
	CurlPreview string `json:"curl_preview,omitempty"`
}

type moduleListItem struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	ModelRef        int64  `json:"model_ref"`
	Output          string `json:"output"`
	MarkdownEnabled bool   `json:"markdown_enabled"`
	Public          bool   `json:"public"`
}

type Handler struct {
	runner  *Runner
	cache   *Cache
	lister  Lister
	authSvc *auth.Service
	chat    *ChatClient
	log     *zap.Logger
}

func NewHandler(runner *Runner, cache *Cache, lister Lister, authSvc *auth.Service, chat *ChatClient, log *zap.Logger) *Handler {
	return &Handler{
		runner:  runner,
		cache:   cache,
		lister:  lister,
		authSvc: authSvc,
		chat:    chat,
		log:     log,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, optionalAuthMW, authMW gin.HandlerFunc) {
	rg.POST("/run", optionalAuthMW, h.run)
	rg.GET("/modules", optionalAuthMW, h.listModules)
	rg.GET("/models", optionalAuthMW, h.listModels)
	rg.POST("/models/:id/test", authMW, h.testModel)
}

// authorize decides whether the caller may execute the module. Admin JWT
// sessions see everything. API key callers see public modules only, but a
// valid key on a private module reads as not-found so private module ids
// cannot be enumerated. Anonymous callers reach public modules only.
func (h *Handler) authorize(c *gin.Context, module *models.ModuleModel) (isAdmin, ok bool) {
	if middleware.IsAuthenticated(c) {
		return true, true
	}

	if key := auth.KeyFromRequest(c); key != "" {
		rec, err := h.authSvc.ValidateAPIKey(key)
		if err != nil {
			response.InternalError(c, err)
			return false, false
		}
		if rec == nil {
			response.Unauthorized(c, "unauthorized", "Invalid API key.")
			return false, false
		}
		if !module.Public {
			response.NotFound(c, "module_not_found", "Module not found.")
			return false, false
		}
		return false, true
	}

	if !module.Public {
		response.Forbidden(c, "forbidden", "This module requires authentication.")
		return false, false
	}
	return false, true
}

func (h *Handler) run(c *gin.Context) {
	var dto RunDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid_request", err.Error())
		return
	}
	ctx := c.Request.Context()

	module, runErr := h.runner.FindModule(ctx, dto.ModuleID)
	if runErr != nil {
		response.Error(c, runErr.Status, runErr.Code, runErr.Message)
		return
	}

	isAdmin, ok := h.authorize(c, module)
	if !ok {
		return
	}
	showCurl := dto.ShowCurl && isAdmin

	streaming := h.runner.ResolveStreamingFor(ctx, module, dto.Streaming)

	var cacheKey string
	if module.CacheTTL > 0 {
		cacheKey = h.cache.Key(module.ID, dto.Query, dto.ContextID, streaming)
		if entry, hit := h.cache.Get(ctx, cacheKey); hit {
			if streaming {
				h.runner.ReplayCached(c, entry)
				return
			}
			response.OK(c, runResponse{
				Success:  true,
				Content:  entry.Content,
				ModuleID: module.ID,
				Cached:   true,
				Format:   entry.Format,
			})
			return
		}
	}

	result, runErr := h.runner.Run(ctx, RunRequest{
		ModuleID:          dto.ModuleID,
		Query:             dto.Query,
		ContextID:         dto.ContextID,
		ShowCurl:          showCurl,
		StreamingOverride: dto.Streaming,
	})
	if runErr != nil {
		response.Error(c, runErr.Status, runErr.Code, runErr.Message)
		return
	}

	if result.Streaming {
		accumulated, complete := h.runner.StreamResult(c, result)
		if complete && accumulated != "" && cacheKey != "" {
			h.cache.Set(ctx, cacheKey, &CacheEntry{
				Content:   accumulated,
				ModuleID:  module.ID,
				Streaming: true,
				Metadata: &streamCacheMeta{
					MarkdownEnabled: module.MarkdownEnabled,
					OutputFormat:    wireOutputFormat(module.Output),
				},
			}, module.CacheTTL)
		}
		return
	}

	if cacheKey != "" {
		h.cache.Set(ctx, cacheKey, &CacheEntry{
			Success:  true,
			Content:  result.Content,
			ModuleID: module.ID,
			Format:   result.Format,
		}, module.CacheTTL)
	}

	response.OK(c, runResponse{
		Success:     true,
		Content:     result.Content,
		ModuleID:    module.ID,
		Cached:      false,
		Format:      result.Format,
		CurlPreview: result.CurlPreview,
	})
}

// listModules returns the public module catalog in a sanitized shape.
// Requires an admin session or a valid API key.
func (h *Handler) listModules(c *gin.Context) {
	if !h.requireCaller(c) {
		return
	}
	items, err := h.lister.ListPublicModules(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]moduleListItem, len(items))
	for i, m := range items {
		out[i] = moduleListItem{
			ID:              m.ID,
			Title:           m.Title,
			ModelRef:        m.ModelRef,
			Output:          m.Output,
			MarkdownEnabled: m.MarkdownEnabled,
			Public:          m.Public,
		}
	}
	response.OK(c, out)
}

// listModels returns active models. Credentials never appear here; the
// model type keeps its api_key out of JSON.
func (h *Handler) listModels(c *gin.Context) {
	if !h.requireCaller(c) {
		return
	}
	items, err := h.lister.ListActiveModels(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) requireCaller(c *gin.Context) bool {
	if middleware.IsAuthenticated(c) {
		return true
	}
	key := auth.KeyFromRequest(c)
	if key == "" {
		response.Unauthorized(c, "unauthorized", "Authentication required.")
		return false
	}
	rec, err := h.authSvc.ValidateAPIKey(key)
	if err != nil {
		response.InternalError(c, err)
		return false
	}
	if rec == nil {
		response.Unauthorized(c, "unauthorized", "Invalid API key.")
		return false
	}
	return true
}

// testModel performs a minimal buffered exchange against a model so admins
// can verify endpoint and credentials.
func (h *Handler) testModel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	model, err := h.runner.modelStore.FindModel(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if model == nil {
		response.NotFound(c, "model_not_found", "Model not found.")
		return
	}

	messages := []ChatMessage{{Role: "user", Content: "Reply with the single word: ok"}}
	resp, runErr := h.chat.Chat(c.Request.Context(), model, messages)
	if runErr != nil {
		response.Error(c, runErr.Status, runErr.Code, runErr.Message)
		return
	}
	response.OK(c, gin.H{
		"success":  true,
		"model_id": model.ID,
		"content":  resp.Text,
	})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid_id", "Invalid id.")
		return 0, false
	}
	return id, true
}
