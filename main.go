package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quest-reward-system/handlers"
	"quest-reward-system/middleware"
	"quest-reward-system/models"
	"quest-reward-system/services"
	"quest-reward-system/utils"
	"quest-reward-system/workers"

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
		BodyLimit: 15 * 1024 * 1024, // proof screenshots cap at 10MB, leave headroom
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
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
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Visitor-ID, X-Fingerprint-Data",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	// TranslateError turns driver duplicate-key errors into
	// gorm.ErrDuplicatedKey, which the claim/invite race recovery relies on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.DeviceFingerprint{},
		&models.IpRecord{},
		&models.BlacklistEntry{},
		&models.RiskEvent{},
		&models.Quest{},
		&models.QuestAction{},
		&models.Reward{},
		&models.Invite{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	// --- External provider clients ---
	telegramClient := services.NewTelegramClient("https://api.telegram.org", os.Getenv("TELEGRAM_BOT_TOKEN"))
	twitterClient := services.NewTwitterClient("https://api.twitter.com", os.Getenv("TWITTER_BEARER_TOKEN"))
	aiClient := services.NewAIClient(os.Getenv("AI_VERIFY_URL"), os.Getenv("AI_VERIFY_TOKEN"))

	// --- Risk engine ---
	riskService := services.NewRiskService(db)
	rateLimiter := services.NewRateLimiter(db)
	blacklistService := services.NewBlacklistService(db)
	gatekeeper := services.NewGatekeeper(db, blacklistService, rateLimiter, riskService)

	// --- Core services ---
	userService := services.NewUserService(db)
	questService := services.NewQuestService(db)
	fingerprintService := services.NewFingerprintService(db)
	commissionService := services.NewCommissionService()
	ledgerService := services.NewLedgerService(db, commissionService)
	inviteService := services.NewInviteService(db, 1.0)
	codeStore := services.NewRedisCodeStore(rdb)
	bindingService := services.NewSocialBindingService(db, codeStore, twitterClient)

	// --- Verifiers ---
	registry := services.NewVerifierRegistry()
	registry.Register(models.QuestTypeJoinChannel, services.NewTelegramJoinVerifier(telegramClient))
	registry.Register(models.QuestTypeFollowTwitter, services.NewTwitterFollowVerifier(twitterClient))
	registry.Register(models.QuestTypeRetweet, services.NewTwitterRetweetVerifier(twitterClient))
	registry.Register(models.QuestTypeScreenshot, services.NewScreenshotVerifier(aiClient))

	actionService := services.NewActionService(db, gatekeeper, registry, ledgerService, bindingService)

	// --- Reward notification worker ---
	notifyURL := os.Getenv("NOTIFY_SERVICE_URL")
	if notifyURL == "" {
		log.Fatal("NOTIFY_SERVICE_URL environment variable not set")
	}
	notifier := services.NewHTTPNotifier(notifyURL, os.Getenv("NOTIFY_SERVICE_TOKEN"))
	notifyWorker := workers.NewRewardNotifyWorker(db, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go workers.PollRewards(ctx, notifyWorker, 10*time.Second)

	questService.StartQuestScheduler()
	riskService.StartRiskSweep()

	// Fingerprint capture runs after user context is attached by the route
	// groups' UserContextMiddleware, so register it globally behind a cheap
	// header read.
	app.Use(middleware.UserContextMiddleware())
	app.Use(middleware.FingerprintMiddleware(fingerprintService, userService))

	// ✅ Setup routes — now with enforced Gateway auth + consistent /s/ prefix
	handlers.SetupQuestRoutes(app, questService, actionService, bindingService, inviteService, userService)
	handlers.SetupAdminRoutes(app, questService, actionService, blacklistService, riskService, fingerprintService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Reward notify worker running (every 10s)")
	log.Println("✅ Quest scheduler and risk sweep running")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
