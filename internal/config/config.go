package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the ONE card server.
type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Room defaults
	DefaultMaxPlayers    int
	DefaultInitialHand   int
	DefaultPointsToWin   int
	DefaultStackingAllow bool
	MaxBotsPerRoom       int

	// Game pacing
	BotThinkingDelay         time.Duration
	MaxConsecutiveBotActions int
	CallOneWindow            time.Duration

	// Security
	JWTSecret string
}

// Load builds a Config from the environment, falling back to development defaults.
func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		Environment: getEnv("APP_ENV", "development"),

		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/oneserver?sslmode=disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		DefaultMaxPlayers:    getEnvInt("ROOM_MAX_PLAYERS", 6),
		DefaultInitialHand:   getEnvInt("ROOM_INITIAL_HAND_SIZE", 7),
		DefaultPointsToWin:   getEnvInt("ROOM_POINTS_TO_WIN", 500),
		DefaultStackingAllow: getEnvBool("ROOM_STACKING_ALLOWED", true),
		MaxBotsPerRoom:       getEnvInt("ROOM_MAX_BOTS", 3),

		BotThinkingDelay:         time.Duration(getEnvInt("BOT_THINKING_DELAY_MS", 3500)) * time.Millisecond,
		MaxConsecutiveBotActions: getEnvInt("BOT_MAX_CONSECUTIVE_ACTIONS", 20),
		CallOneWindow:            time.Duration(getEnvInt("CALL_ONE_WINDOW_MS", 3000)) * time.Millisecond,

		JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
