package http

import (
	"github.com/gin-gonic/gin"
	"github.com/shelfpix/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		batch := v1.Group("/batch")
		{
			batch.POST("", handler.StartBatch)
			batch.DELETE("", handler.StopBatch)
			batch.GET("/progress", handler.BatchProgress)
		}

		items := v1.Group("/items")
		{
			items.GET("/review", handler.ListReview)
			items.POST("/:id/approve", handler.ApproveItem)
			items.POST("/:id/decline", handler.DeclineItem)
			items.POST("/:id/reprocess", handler.ReprocessItem)
		}

		v1.GET("/stats", handler.Stats)
	}

	return router
}
