package main

import (
	"context"
	"net/mail"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/database"
	"github.com/aimastery/academy/backend/logging"
	"github.com/aimastery/academy/backend/middleware"
	"github.com/aimastery/academy/backend/routes"
	"github.com/aimastery/academy/backend/services/email"
	"github.com/aimastery/academy/backend/services/payments"
	"github.com/aimastery/academy/backend/services/tts"
)

const shutdownTimeout = 10 * time.Second

//go:generate swag init -g main.go -o docs

// @title AI Mastery Academy API
// @version 1.0
// @description Tiered course platform: content, progress, quizzes, badges, certificates, community and checkout.
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	// Initialize logger
	logger := logging.InitLogger(logging.LoggerConfig{EnableColors: os.Getenv("NO_COLOR") == ""})

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Error loading config: %v", err)
	}

	reporter := logging.New(logger, cfg.RollbarToken, cfg.Env)
	if rb, ok := reporter.(*logging.RollbarLogger); ok {
		defer rb.Close()
	}

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatalf("Error initializing database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatalf("Error migrating database: %v", err)
	}
	if err := database.Seed(context.Background(), db); err != nil {
		logger.Fatalf("Error seeding database: %v", err)
	}

	// Services
	var mailer email.Sender
	if cfg.SendgridAPIKey != "" {
		from := mail.Address{Name: cfg.EmailFromName, Address: cfg.EmailFrom}
		mailer = email.NewSendgridSender(cfg.SendgridAPIKey, from, reporter)
	} else {
		mailer = email.NewConsoleSender(logger)
	}

	deps := routes.Dependencies{
		DB:       db,
		Cfg:      cfg,
		Logger:   logger,
		Reporter: reporter,
		Mailer:   mailer,
		Speech:   tts.NewClient(cfg.TTSAPIURL, cfg.TTSAPIKey, cfg.TTSVoiceID, cfg.TTSModelID),
	}
	if cfg.StripeSecretKey != "" {
		deps.Payments = payments.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		logger.Println("STRIPE_SECRET_KEY not set, checkout is disabled")
	}

	var limiterStorage fiber.Storage
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Fatalf("Error connecting to redis: %v", err)
		}
		limiterStorage = middleware.NewRedisStorage(client, "ratelimit")
		defer limiterStorage.Close()
	}
	deps.LimiterStorage = limiterStorage

	app := routes.NewApp(deps)

	go func() {
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logger.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	logger.Printf("%v: shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		reporter.Error("could not stop server gracefully", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
