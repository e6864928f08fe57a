package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler) {
	// Health check endpoint (no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes, all read-only
	v1 := router.Group("/api/v1")
	{
		// Pool endpoints
		v1.GET("/pools/:address", handler.GetPool)
		v1.GET("/pools/:address/users", handler.ListPoolUsers)
		v1.GET("/pools/:address/users/:user", handler.GetPoolUser)
		v1.GET("/pools/:address/history", handler.ListPoolHistory)

		// User endpoints
		v1.GET("/users/:user/history", handler.ListUserHistory)

		// Token endpoints
		v1.GET("/tokens/:address", handler.GetToken)
		v1.GET("/tokens/:address/:token_id", handler.GetNFToken)

		// Factory endpoints
		v1.GET("/factories/:address", handler.GetFactory)
		v1.GET("/factories/:address/requests/:id", handler.GetRequest)
	}
}
