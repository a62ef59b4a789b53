package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/playone/server/internal/api/handlers"
	"github.com/playone/server/internal/auth"
	"github.com/playone/server/internal/config"
	"github.com/playone/server/internal/game"
	"github.com/playone/server/internal/ws"
)

// SetupRoutes configures all API routes.
func SetupRoutes(router *gin.Engine, registry *game.RoomRegistry, dispatcher *game.Dispatcher, hub *ws.Hub, authn *auth.Authenticator, cfg *config.Config) {
	// CRITICAL: No-cache middleware MUST be first in development
	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			// Aggressive no-cache for development
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] Aggressive no-cache headers enabled for all routes")
	}

	// Health check
	router.GET("/health", handlers.HealthCheck)

	// Realtime gameplay transport
	router.GET("/ws", ws.ServeWS(hub, dispatcher, authn))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		rooms := v1.Group("/rooms")
		{
			rooms.POST("", handlers.CreateRoom(registry, authn, cfg))
			rooms.GET("", handlers.ListRooms(registry))
			rooms.GET("/:code", handlers.GetRoom(registry))
			rooms.POST("/:code/join", handlers.JoinRoom(registry, authn))
		}
	}
}
