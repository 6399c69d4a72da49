package app

import (
	"testhub_backend/docs"
	"testhub_backend/internal/config"
	"testhub_backend/internal/middleware"
	"testhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		tests := authGroup.Group("/tests")
		{
			tests.POST("/start", c.testHub.Start)
			tests.POST("/submit-answer", c.testHub.SubmitAnswer)
			tests.GET("/history", c.testHub.ListHistory)
			tests.GET("/prompts", c.testHub.GetPrompts)
			tests.GET("/sessions/:id", c.testHub.GetResults)
			tests.GET("/sessions/:id/continue", c.testHub.Continue)
			tests.POST("/sessions/:id/retake-incorrect", c.testHub.RetakeIncorrect)
			tests.DELETE("/sessions/:id", c.testHub.Delete)
		}

		authGroup.GET("/guidance/summary", c.guidance.GetSummary)
	}
}
