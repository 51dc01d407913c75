package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/docquery/docquery-backend/internal/handlers"
	"github.com/docquery/docquery-backend/internal/middleware"
)

type RouterConfig struct {
	ProjectHandler     *handlers.ProjectHandler
	DocumentHandler    *handlers.DocumentHandler
	QueryHandler       *handlers.QueryHandler
	IdentityMiddleware *middleware.IdentityMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("docquery-backend"))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-ID"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.IdentityMiddleware.RequireIdentity())
	// Projects
	api.POST("/projects", cfg.ProjectHandler.Create)
	api.GET("/projects", cfg.ProjectHandler.List)
	api.GET("/projects/:name", cfg.ProjectHandler.Get)
	api.PUT("/projects/:name", cfg.ProjectHandler.Update)
	api.DELETE("/projects/:name", cfg.ProjectHandler.Delete)
	// Documents
	api.POST("/documents/upload/:project_name", cfg.DocumentHandler.Upload)
	api.POST("/documents/process", cfg.DocumentHandler.Process)
	api.POST("/documents/flush", cfg.DocumentHandler.Flush)
	api.GET("/documents", cfg.DocumentHandler.List)
	api.DELETE("/documents", cfg.DocumentHandler.Delete)
	// Query
	api.POST("/query", cfg.QueryHandler.Answer)

	return router
}
