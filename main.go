package main

import (
	"log"
	"os"
	"time"

	"coduel/database"
	"coduel/handlers"
	"coduel/middleware"
	"coduel/services"
	"coduel/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	validateEnvironment()

	// Initialize database
	database.InitDB()
	defer database.CloseDB()

	// Seed the question bank
	log.Println("Loading question banks...")
	services.InitQuestionData()

	// Core services
	cfg := services.DefaultConfig()
	store := services.NewGormStore()
	hub := services.NewHub()
	matchmaker := services.NewMatchmaker(store, hub, cfg)
	battleManager := services.NewBattleManager(store, hub, cfg)
	handlers.Init(matchmaker, battleManager, hub, store)

	// Background sweeper (stale queue entries, abandoned matches)
	sweeper := workers.NewSweeper(store, cfg)
	if err := sweeper.Start(); err != nil {
		log.Fatal("Failed to start sweeper:", err)
	}
	defer sweeper.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    1 * 1024 * 1024, // 1MB, payloads here are tiny
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	app.Use(middleware.RateLimitMiddleware())

	// API Routes
	api := app.Group("/api")

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.AuthRateLimitMiddleware())
	authGroup.Post("/guest", handlers.GuestLogin)
	authGroup.Post("/register", handlers.Register)
	authGroup.Post("/login", handlers.Login)

	// Matchmaking queue
	queueGroup := api.Group("/queue")
	queueGroup.Use(middleware.AuthMiddleware)
	queueGroup.Post("/join", handlers.JoinQueue)
	queueGroup.Post("/leave", handlers.LeaveQueue)

	// Bot matches skip the queue entirely
	api.Post("/match/bot", middleware.AuthMiddleware, handlers.CreateBotMatch)

	// Battle routes
	battleGroup := api.Group("/battle")
	battleGroup.Use(middleware.AuthMiddleware)
	battleGroup.Get("/:id", handlers.GetBattle)
	battleGroup.Post("/:id/answer", handlers.SubmitAnswer)
	battleGroup.Post("/:id/advance", handlers.Advance)
	battleGroup.Post("/:id/reaction", handlers.React)

	// Leaderboard and league standings
	api.Get("/leaderboard", handlers.GetLeaderboard)
	api.Get("/league", middleware.AuthMiddleware, handlers.GetLeague)

	// Profile routes
	profileGroup := api.Group("/profile")
	profileGroup.Use(middleware.AuthMiddleware)
	profileGroup.Get("/", handlers.GetProfile)
	profileGroup.Put("/", handlers.UpdateProfile)
	profileGroup.Get("/history", handlers.GetMatchHistory)
	profileGroup.Delete("/", handlers.DeleteAccount)

	// WebSocket endpoint for live battle and matchmaking events
	app.Use("/ws", handlers.WSUpgrade)
	app.Get("/ws", websocket.New(handlers.HandleWS))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"battles":   battleManager.LiveCount(),
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("🚀 Server starting on port %s", port)
	log.Printf("📊 Environment: %s", getEnv("APP_ENV", "development"))
	log.Printf("🔐 JWT Secret configured: %v", os.Getenv("JWT_SECRET") != "")
	log.Printf("🌐 WebSocket available at ws://localhost:%s/ws", port)

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if os.Getenv("APP_ENV") == "production" {
		if jwtSecret == "" {
			log.Fatal("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
		}
		if len(jwtSecret) < 32 {
			log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
		}
		corsOrigins := os.Getenv("CORS_ORIGINS")
		if corsOrigins == "" || corsOrigins == "http://localhost:3000" {
			log.Println("WARNING: CORS_ORIGINS not properly configured for production")
		}
		return
	}
	if jwtSecret == "" {
		log.Println("WARNING: JWT_SECRET not set, using insecure development default")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
