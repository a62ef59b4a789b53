package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/playone/server/internal/api"
	"github.com/playone/server/internal/auth"
	"github.com/playone/server/internal/backends"
	"github.com/playone/server/internal/config"
	"github.com/playone/server/internal/game"
	"github.com/playone/server/internal/gameredis"
	"github.com/playone/server/internal/middleware"
	"github.com/playone/server/internal/migrations"
	"github.com/playone/server/internal/store"
	"github.com/playone/server/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := backends.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.Run(cfg.DatabaseURL, "migrations"); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis (best-effort snapshot cache + leaving guard, never the
	// source of truth for session state)
	rdb, err := backends.OpenRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	snapshots := gameredis.NewSnapshotCache(rdb)
	leavingGuard := gameredis.NewLeavingGuard(rdb)

	hooks := store.NewHooks(db)
	authn := auth.NewAuthenticator(cfg.JWTSecret)

	defaultConfig := game.SessionConfig{
		MaxPlayers:       cfg.DefaultMaxPlayers,
		InitialHandSize:  cfg.DefaultInitialHand,
		StackingAllowed:  cfg.DefaultStackingAllow,
		PointsToWin:      cfg.DefaultPointsToWin,
		MaxBots:          cfg.MaxBotsPerRoom,
		BotThinkingDelay: cfg.BotThinkingDelay,
		MaxBotActions:    cfg.MaxConsecutiveBotActions,
		CallOneWindow:    cfg.CallOneWindow,
	}

	hub := ws.NewHub(snapshots, leavingGuard)
	registry := game.NewRoomRegistry(hub, hooks)
	hub.SetRegistry(registry)
	dispatcher := game.NewDispatcher(registry, hub, defaultConfig)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.WebSocketCORSCheck(cfg))

	api.SetupRoutes(router, registry, dispatcher, hub, authn, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting ONE game server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
