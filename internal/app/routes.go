package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modular-ai/core/internal/middleware"
	"github.com/modular-ai/core/internal/modules/assistant"
	"github.com/modular-ai/core/internal/modules/auth"
	"github.com/modular-ai/core/internal/modules/registry"
	pkgredis "github.com/modular-ai/core/internal/pkg/redis"
	"github.com/modular-ai/core/internal/pkg/response"
)

func (a *App) registerRoutes(rc *pkgredis.Client) error {
	authMW := middleware.Auth(a.db)
	optionalAuthMW := middleware.OptionalAuth(a.db)

	store := registry.NewStore(a.db)
	cache := assistant.NewCache(rc, a.logger)
	chat := assistant.NewChatClient(a.cfg.Upstream)
	runner := assistant.NewRunner(store, store, store, chat, a.logger)

	authSvc := auth.NewService(a.db, a.logger)

	api := a.router.Group("/api/v1")
	api.GET("/health", a.health)

	auth.NewHandler(authSvc).RegisterRoutes(api)
	assistant.NewHandler(runner, cache, store, authSvc, chat, a.logger).
		RegisterRoutes(api, optionalAuthMW, authMW)
	registry.NewAdminHandler(store, authSvc, cache, a.logger).
		RegisterRoutes(api, authMW)

	a.router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "not_found", "Route not found")
	})
	a.router.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	return nil
}

func (a *App) health(c *gin.Context) {
	response.OK(c, gin.H{
		"status": "ok",
		"uptime": time.Since(processStart).Round(time.Second).String(),
	})
}

var processStart = time.Now()
