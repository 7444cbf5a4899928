package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/concern-verifier-api/internal/handler"
	"github.com/noah-isme/concern-verifier-api/internal/middleware"
	"github.com/noah-isme/concern-verifier-api/internal/service"
	"github.com/noah-isme/concern-verifier-api/pkg/config"
	"github.com/noah-isme/concern-verifier-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/concern-verifier-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/concern-verifier-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	concerns  *handler.ConcernHandler
	residents *handler.ResidentHandler
	metrics   *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routeHandlers, metricsSvc *service.MetricsService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", h.metrics.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	concerns := api.Group("/concerns")
	concerns.POST("", h.concerns.Submit)
	concerns.GET("", h.concerns.List)
	concerns.GET("/stats", h.concerns.Stats)
	concerns.GET("/export", h.concerns.Export)
	concerns.POST("/process-all", h.concerns.ProcessAll)
	concerns.GET("/:id", h.concerns.Get)
	concerns.PUT("/:id", h.concerns.Override)

	residents := api.Group("/residents")
	residents.POST("", h.residents.Create)
	residents.POST("/test", h.residents.CreateTest)
	residents.GET("", h.residents.List)
	residents.GET("/:id", h.residents.Get)

	return r
}
