package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"hunt-reward-system/handlers"
	"hunt-reward-system/middleware"
	"hunt-reward-system/models"
	"hunt-reward-system/services"
	"hunt-reward-system/utils"
	"hunt-reward-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // scan payloads are tiny
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
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
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.ScanTarget{},
		&models.ScanRecord{},
		&models.Participant{},
		&models.LeaderboardEntry{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	registryService := services.NewRegistryService(db)
	participantService := services.NewParticipantService(db)
	statsService := services.NewStatsService(db, registryService)
	limiter := services.NewRateLimiter()

	// --- Settlement rail (external token-transfer service) ---
	settlementURL := os.Getenv("SETTLEMENT_SERVICE_URL")
	if settlementURL == "" {
		log.Fatal("SETTLEMENT_SERVICE_URL environment variable not set")
	}
	settlementToken := os.Getenv("SETTLEMENT_SERVICE_TOKEN")
	if settlementToken == "" {
		log.Fatal("SETTLEMENT_SERVICE_TOKEN environment variable not set")
	}
	rail := services.NewSettlementClient(settlementURL, settlementToken)

	scanService := services.NewScanService(db, registryService, statsService, rail, limiter)
	if v := os.Getenv("SCAN_STALE_AFTER_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			scanService.StaleAfter = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("SCAN_RATE_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			scanService.ScanRatePerMinute = n
		}
	}

	// --- Optional: seed the registry from an R2 object at boot ---
	if seedKey := os.Getenv("REGISTRY_SEED_KEY"); seedKey != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		if err := registryService.SeedFromObjectStore(seedKey); err != nil {
			log.Fatal("failed to seed registry:", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := workers.NewStaleScanSweeper(db, scanService.StaleAfter)
	go sweeper.Run(ctx, 1*time.Minute)

	services.StartEvictionScheduler(limiter)

	handlers.SetupScanRoutes(app, scanService, participantService, statsService, limiter)
	handlers.SetupRegistryRoutes(app, registryService, statsService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Stale-scan sweeper running (every 1m)")
	log.Println("✅ Rate-limit eviction scheduler running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
