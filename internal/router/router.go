package router

import (
	"net/http"

	"github.com/serialguard/internal/cache"
	"github.com/serialguard/internal/config"
	gamehandlers "github.com/serialguard/internal/http/handlers/game"
	"github.com/serialguard/internal/http/response"
	"github.com/serialguard/internal/logger"
	"github.com/serialguard/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	gameHandler := gamehandlers.New(c.JoinService, cfg.Webhook.Secret)
	return newEngine(cfg, gameHandler, cache.Client())
}

func newEngine(cfg *config.Config, gameHandler *gamehandlers.Handler, redisClient *redis.Client) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	joinRule := RateLimitRule{
		Prefix:        cache.Key("rate", "game_join"),
		WindowSeconds: cfg.Webhook.WindowSeconds,
		MaxRequests:   cfg.Webhook.MaxRequests,
	}

	// 中间件
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(RecoveryMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		game := apiV1.Group("/game")
		game.POST("/join", RateLimitMiddleware(redisClient, joinRule, KeyByIP), gameHandler.ReportJoin)
	}
	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "not found")
	})
	return r
}
