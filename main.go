package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"session-stats-service/handlers"
	"session-stats-service/middleware"
	"session-stats-service/models"
	"session-stats-service/services"
	"session-stats-service/utils"
	"session-stats-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024, // screenshots come base64-encoded
	})

	// 🔐 GLOBAL: Only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Gateway-Token, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Game{},
		&models.GameStat{},
		&models.Player{},
		&models.Session{},
		&models.SessionDayWinner{},
		&models.GameSet{},
		&models.SetWinner{},
		&models.Match{},
		&models.MatchWinner{},
		&models.PlayerSession{},
		&models.PlayerStat{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := models.SeedReferenceData(db); err != nil {
		log.Fatal("failed to seed reference data:", err)
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("invalid REDIS_URL:", err)
	}
	rdb := redis.NewClient(redisOpts)

	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, os.Getenv("STATS_SERVICE_TOKEN"))

	visionServiceURL := os.Getenv("VISION_SERVICE_URL")
	if visionServiceURL == "" {
		log.Fatal("VISION_SERVICE_URL environment variable not set")
	}
	visionClient := services.NewVisionClient(visionServiceURL, os.Getenv("VISION_API_KEY"))

	// analytics is optional — a missing URL disables it
	analytics := services.NewAnalyticsClient(os.Getenv("ANALYTICS_URL"), os.Getenv("ANALYTICS_API_KEY"))

	cache := services.NewSessionCache(rdb)
	gameService := services.NewGameService(db)
	sessionService := services.NewSessionService(db, authClient, cache, analytics)
	visionService := services.NewVisionService(db, visionClient, analytics)

	handlers.SetupGameRoutes(app, gameService)
	handlers.SetupSessionRoutes(app, sessionService, visionService, authClient)

	sessionService.StartWinnerRecomputeScheduler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rosterServiceURL := os.Getenv("ROSTER_SERVICE_URL")
	if rosterServiceURL != "" {
		syncWorker := workers.NewPlayerSyncWorker(
			db,
			rosterServiceURL,
			"/api/v1/roster/players",
			os.Getenv("STATS_SERVICE_TOKEN"),
		)
		syncWorker.Start(ctx)
	} else {
		log.Println("⚠️  ROSTER_SERVICE_URL not set — player sync worker disabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8600"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Fatal("server stopped:", err)
		}
	}()
	log.Printf("🚀 Session stats service listening on :%s", port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("⏹️  Shutting down…")
	cancel()
	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
