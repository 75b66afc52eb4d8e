package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/smolkov/gridchat-server/internal/auth"
	"github.com/smolkov/gridchat-server/internal/config"
	"github.com/smolkov/gridchat-server/internal/core"
	"github.com/smolkov/gridchat-server/internal/store"
)

// NewServer builds the HTTP server: REST API, metrics, uploaded file
// serving, and the WebSocket endpoint.
func NewServer(hub *core.Hub, st store.Store, authSvc *auth.Service, cfg config.Config, gatherer prometheus.Gatherer, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	router.Static("/uploads", cfg.Uploads.Dir)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, logger)))

	apiHandlers := NewAPIHandlers(authSvc, logger)
	groupHandlers := NewGroupHandlers(st, logger)
	userHandlers := NewUserHandlers(st, logger)
	uploadHandlers := NewUploadHandlers(st, hub, cfg.Uploads.Dir, cfg.Uploads.MaxSizeBytes, logger)

	api := router.Group("/api")
	if cfg.RateLimit.Enabled {
		api.Use(RateLimitMiddleware(cfg.RateLimit.Limit, cfg.RateLimit.Window))
	}
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	authorized := api.Group("")
	authorized.Use(AuthMiddleware(authSvc, logger))
	authorized.GET("/groups", groupHandlers.ListGroups)
	authorized.POST("/groups", groupHandlers.CreateGroup)
	authorized.POST("/groups/:id/join", groupHandlers.JoinGroup)
	authorized.GET("/groups/:id/channels", groupHandlers.ListChannels)
	authorized.POST("/groups/:id/channels", groupHandlers.CreateChannel)
	authorized.GET("/users/search", userHandlers.SearchUsers)
	authorized.POST("/uploads/avatar", uploadHandlers.UploadAvatar)
	authorized.POST("/uploads/image", uploadHandlers.UploadImage)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
