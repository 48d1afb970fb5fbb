package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/studybot/api/swagger"
	"github.com/noah-isme/studybot/internal/handler"
	"github.com/noah-isme/studybot/internal/middleware"
	"github.com/noah-isme/studybot/internal/models"
	"github.com/noah-isme/studybot/internal/service"
	"github.com/noah-isme/studybot/pkg/config"
	"github.com/noah-isme/studybot/pkg/logger"
	corsmiddleware "github.com/noah-isme/studybot/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/studybot/pkg/middleware/requestid"
)

type routeDeps struct {
	auth    *handler.AuthHandler
	users   *handler.UserHandler
	events  *handler.EventHandler
	metrics *handler.MetricsHandler
	tokens  middleware.TokenValidator
	metric  *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metric))

	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.POST("/auth/token", middleware.BotKey(cfg.Bot.APIKey), deps.auth.IssueToken)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.tokens))

	users := secured.Group("/users")
	users.POST("/verify", deps.users.Verify)
	users.GET("/me", deps.users.Me)
	users.GET("", middleware.RBAC(models.EventUserRoleStaff), deps.users.List)

	events := secured.Group("/events")
	events.POST("", deps.events.Create)
	events.GET("/mine", deps.events.ListMine)
	events.GET("/upcoming", deps.events.ListUpcoming)
	events.GET("/:id", deps.events.Get)
	events.PATCH("/:id", deps.events.Update)
	events.DELETE("/:id", deps.events.Delete)
	events.PUT("/:id/channel", deps.events.AttachChannel)
	events.POST("/:id/rsvp", deps.events.RSVP)
	events.DELETE("/:id/rsvp", deps.events.UnRSVP)
	events.POST("/:id/invitations", deps.events.Invite)
	events.GET("/:id/roster", deps.events.Roster)
	events.GET("/:id/ics", deps.events.Calendar)

	secured.GET("/system/metrics", middleware.RBAC(models.EventUserRoleStaff), deps.metrics.Snapshot)

	return r
}
