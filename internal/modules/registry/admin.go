package registry

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/modular-ai/core/internal/models"
	"github.com/modular-ai/core/internal/modules/auth"
	"github.com/modular-ai/core/internal/pkg/pagination"
	"github.com/modular-ai/core/internal/pkg/response"
	"go.uber.org/zap"
)

// CacheInvalidator drops cached results for a module. Satisfied by the
// assistant cache.
type CacheInvalidator interface {
	Clear(ctx context.Context, moduleID int64) int
}

type ModuleDTO struct {
	Title             string `json:"title" binding:"required"`
	ModelRef          int64  `json:"model_ref" binding:"required"`
	System            string `json:"system"`
	User              string `json:"user"`
	UserPromptType    string `json:"user_prompt_type"`
	Output            string `json:"output"`
	MarkdownEnabled   bool   `json:"markdown_enabled"`
	Public            bool   `json:"public"`
	EditorAnalysis    bool   `json:"editor_analysis_enabled"`
	StreamingOverride string `json:"streaming_override"`
	CacheTTL          int    `json:"cache_ttl"`
}

type ModelDTO struct {
	Title     string `json:"title" binding:"required"`
	ModelID   string `json:"model_id"`
	Endpoint  string `json:"endpoint"`
	APIKey    string `json:"api_key"`
	Active    *bool  `json:"active"`
	Streaming bool   `json:"streaming"`
}

type PageDTO struct {
	Title   string `json:"title" binding:"required"`
	Excerpt string `json:"excerpt"`
	Text    string `json:"text"`
}

// AdminHandler exposes the management CRUD surface. Every route requires an
// authenticated admin; registration wires the JWT middleware.
type AdminHandler struct {
	store   *Store
	authSvc *auth.Service
	cache   CacheInvalidator
	log     *zap.Logger
}

func NewAdminHandler(store *Store, authSvc *auth.Service, cache CacheInvalidator, log *zap.Logger) *AdminHandler {
	return &AdminHandler{store: store, authSvc: authSvc, cache: cache, log: log}
}

func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	admin := rg.Group("/admin", authMW)

	mod := admin.Group("/modules")
	mod.GET("", h.listModules)
	mod.POST("", h.createModule)
	mod.GET("/:id", h.getModule)
	mod.PUT("/:id", h.updateModule)
	mod.DELETE("/:id", h.deleteModule)

	mdl := admin.Group("/models")
	mdl.GET("", h.listModels)
	mdl.POST("", h.createModel)
	mdl.GET("/:id", h.getModel)
	mdl.PUT("/:id", h.updateModel)
	mdl.DELETE("/:id", h.deleteModel)

	keys := admin.Group("/apikeys")
	keys.GET("", h.listKeys)
	keys.POST("", h.createKey)
	keys.DELETE("/:id", h.deleteKey)

	pages := admin.Group("/pages")
	pages.GET("", h.listPages)
	pages.POST("", h.createPage)
	pages.GET("/:id", h.getPage)
	pages.PUT("/:id", h.updatePage)
	pages.DELETE("/:id", h.deletePage)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid_id", "Invalid id.")
		return 0, false
	}
	return id, true
}

func applyModuleDTO(m *models.ModuleModel, dto *ModuleDTO) {
	m.Title = dto.Title
	m.ModelRef = dto.ModelRef
	m.System = dto.System
	m.User = dto.User
	m.UserPromptType = dto.UserPromptType
	if m.UserPromptType == "" {
		m.UserPromptType = models.PromptSourceCustom
	}
	m.Output = dto.Output
	if m.Output == "" {
		m.Output = models.OutputPlain
	}
	m.MarkdownEnabled = dto.MarkdownEnabled
	m.Public = dto.Public
	m.EditorAnalysis = dto.EditorAnalysis
	m.StreamingOverride = dto.StreamingOverride
	if m.StreamingOverride == "" {
		m.StreamingOverride = models.StreamingModelDefault
	}
	m.CacheTTL = dto.CacheTTL
}

func (h *AdminHandler) listModules(c *gin.Context) {
	page, err := pagination.Paginate[models.ModuleModel](
		h.store.db.WithContext(c.Request.Context()).Model(&models.ModuleModel{}).Order("id ASC"),
		pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, page)
}

func (h *AdminHandler) createModule(c *gin.Context) {
	var dto ModuleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid_request", err.Error())
		return
	}
	var m models.ModuleModel
	applyModuleDTO(&m, &dto)
	if err := h.store.db.WithContext(c.Request.Context()).Create(&m).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, m)
}

func (h *AdminHandler) getModule(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.store.FindModule(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if m == nil {
		response.NotFound(c, "module_not_found", "Module not found.")
		return
	}
	response.OK(c, m)
}

func (h *AdminHandler) updateModule(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var dto ModuleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid_request", err.Error())
		return
	}
	m, err := h.store.FindModule(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if m == nil {
		response.NotFound(c, "module_not_found", "Module not found.")
		return
	}
	applyModuleDTO(m, &dto)
	if err := h.store.db.WithContext(c.Request.Context()).Save(m).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	h.cache.Clear(c.Request.Context(), id)
	response.OK(c, m)
}

func (h *AdminHandler) deleteModule(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res := h.store.db.WithContext(c.Request.Context()).Delete(&models.ModuleModel{}, id)
	if res.Error != nil {
		response.InternalError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		response.NotFound(c, "module_not_found", "Module not found.")
		return
	}
	h.cache.Clear(c.Request.Context(), id)
	response.NoContent(c)
}

func applyModelDTO(m *models.ModelModel, dto *ModelDTO) {
	m.Title = dto.Title
	m.ModelID = dto.ModelID
	m.Endpoint = dto.Endpoint
	if dto.APIKey != "" {
		m.APIKey = dto.APIKey
	}
	if dto.Active != nil {
		m.Active = *dto.Active
	}
	m.Streaming = dto.Streaming
}

func (h *AdminHandler) listModels(c *gin.Context) {
	page, err := pagination.Paginate[models.ModelModel](
		h.store.db.WithContext(c.Request.Context()).Model(&models.ModelModel{}).Order("id ASC"),
		pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, page)
}

func (h *AdminHandler) createModel(c *gin.Context) {
	var dto ModelDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid_request", err.Error())
		return
	}
	m := models.ModelModel{Active: true}
	applyModelDTO(&m, &dto)
	if err := h.store.db.WithContext(c.Request.Context()).Create(&m).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, m)
}

func (h *AdminHandler) getModel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.store.FindModel(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if m == nil {
		response.NotFound(c, "model_not_found", "Model not found.")
		return
	}
	response.OK(c, m)
}

func (h *AdminHandler) updateModel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var dto ModelDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid_request", err.Error())
		return
	}
	m, err := h.store.FindModel(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if m == nil {
		response.NotFound(c, "model_not_found", "Model not found.")
		return
	}
	applyModelDTO(m, &dto)
	if err := h.store.db.WithContext(c.Request.Context()).Save(m).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	h.clearModelCaches(c, id)
	response.OK(c, m)
}

func (h *AdminHandler) deleteModel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res := h.store.db.WithContext(c.Request.Context()).Delete(&models.ModelModel{}, id)
	if res.Error != nil {
		response.InternalError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		response.NotFound(c, "model_not_found", "Model not found.")
		return
	}
	h.clearModelCaches(c, id)
	response.NoContent(c)
}

// clearModelCaches invalidates every module bound to a model. A changed
// endpoint or credential makes prior responses stale.
func (h *AdminHandler) clearModelCaches(c *gin.Context, modelID int64) {
	ids, err := h.store.ModulesUsingModel(c.Request.Context(), modelID)
	if err != nil {
		h.log.Warn("module lookup for cache invalidation failed",
			zap.Int64("model_id", modelID), zap.Error(err))
		return
	}
	for _, id := range ids {
		h.cache.Clear(c.Request.Context(), id)
	}
}

func (h *AdminHandler) listKeys(c *gin.Context) {
	page, err := pagination.Paginate[models.APIKeyModel](
		h.store.db.WithContext(c.Request.Context()).Model(&models.APIKeyModel{}).Order("id ASC"),
		pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, page)
}

func (h *AdminHandler) createKey(c *gin.Context) {
	var dto auth.CreateKeyDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid_request", err.Error())
		return
	}
	rec, err := h.authSvc.GenerateKey(&dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, rec)
}

func (h *AdminHandler) deleteKey(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res := h.store.db.WithContext(c.Request.Context()).Delete(&models.APIKeyModel{}, id)
	if res.Error != nil {
		response.InternalError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		response.NotFound(c, "key_not_found", "API key not found.")
		return
	}
	response.NoContent(c)
}

func (h *AdminHandler) listPages(c *gin.Context) {
	page, err := pagination.Paginate[models.PageModel](
		h.store.db.WithContext(c.Request.Context()).Model(&models.PageModel{}).Order("id ASC"),
		pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, page)
}

func (h *AdminHandler) createPage(c *gin.Context) {
	var dto PageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid_request", err.Error())
		return
	}
	p := models.PageModel{Title: dto.Title, Excerpt: dto.Excerpt, Text: dto.Text}
	if err := h.store.db.WithContext(c.Request.Context()).Create(&p).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, p)
}

func (h *AdminHandler) getPage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.store.FindPage(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c, "page_not_found", "Page not found.")
		return
	}
	response.OK(c, p)
}

func (h *AdminHandler) updatePage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var dto PageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid_request", err.Error())
		return
	}
	p, err := h.store.FindPage(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c, "page_not_found", "Page not found.")
		return
	}
	p.Title = dto.Title
	p.Excerpt = dto.Excerpt
	p.Text = dto.Text
	if err := h.store.db.WithContext(c.Request.Context()).Save(p).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, p)
}

func (h *AdminHandler) deletePage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res := h.store.db.WithContext(c.Request.Context()).Delete(&models.PageModel{}, id)
	if res.Error != nil {
		response.InternalError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		response.NotFound(c, "page_not_found", "Page not found.")
		return
	}
	response.NoContent(c)
}
