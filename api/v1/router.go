package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/tim7en/pm-app-sub001/middleware"
)

// RegisterRoutes registers all v1 API routes
func RegisterRoutes(router *gin.RouterGroup, health *HealthHandler, entities *EntityHandler, jwtSecret string) {
	// Health check endpoint
	router.GET("/health", health.HealthCheck)

	// Admin endpoints - protected by AuthMiddleware and AdminMiddleware
	adminGroup := router.Group("/admin")
	adminGroup.Use(middleware.AuthMiddleware(jwtSecret), middleware.AdminMiddleware())
	{
		adminGroup.GET("/entities/:type/deleted", entities.ListDeleted)
		adminGroup.GET("/entities/:type/:id", entities.GetEntity)
		adminGroup.POST("/entities/:type/cleanup", entities.Cleanup)
		adminGroup.POST("/entities/:type/:id/delete", entities.DeleteEntity)
		adminGroup.POST("/entities/:type/:id/restore", entities.RestoreEntity)
	}
}
