package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Env          string `env:"APP_ENV" envDefault:"development"`
	AppName      string `env:"APP_NAME" envDefault:"AI Mastery Academy"`
	ServerPort   string `env:"SERVER_PORT" envDefault:"8080"`
	AllowOrigins string `env:"ALLOW_ORIGINS" envDefault:"*"`
	FrontendURL  string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"academy"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	DBPath     string `env:"DB_PATH" envDefault:"academy.db"`

	JWTSecret     string        `env:"JWT_SECRET" envDefault:"secret"`
	JWTExpiration time.Duration `env:"JWT_EXPIRATION" envDefault:"72h"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"20"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	Currency            string `env:"STRIPE_CURRENCY" envDefault:"usd"`

	PriceStarter int64 `env:"PRICE_STARTER" envDefault:"4900"`
	PricePro     int64 `env:"PRICE_PRO" envDefault:"9900"`
	PriceMaster  int64 `env:"PRICE_MASTER" envDefault:"19900"`

	PromoEnabled         bool      `env:"PROMO_ENABLED" envDefault:"false"`
	PromoEndsAt          time.Time `env:"PROMO_ENDS_AT" envDefault:"2000-01-01T00:00:00Z"`
	PromoTotalSpots      int       `env:"PROMO_TOTAL_SPOTS" envDefault:"100"`
	PromoDiscountPercent int       `env:"PROMO_DISCOUNT_PERCENT" envDefault:"50"`

	SendgridAPIKey string `env:"SENDGRID_API_KEY"`
	EmailFrom      string `env:"EMAIL_FROM" envDefault:"noreply@aimastery.academy"`
	EmailFromName  string `env:"EMAIL_FROM_NAME" envDefault:"AI Mastery Academy"`

	TTSAPIURL  string `env:"TTS_API_URL" envDefault:"https://api.elevenlabs.io"`
	TTSAPIKey  string `env:"TTS_API_KEY"`
	TTSVoiceID string `env:"TTS_VOICE_ID" envDefault:"21m00Tcm4TlvDq8ikWAM"`
	TTSModelID string `env:"TTS_MODEL_ID" envDefault:"eleven_multilingual_v2"`

	RollbarToken string `env:"ROLLBAR_TOKEN"`
}

// LoadConfig reads .env (if present) and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PromoDiscountPercent < 0 || cfg.PromoDiscountPercent > 100 {
		return nil, fmt.Errorf("PROMO_DISCOUNT_PERCENT must be between 0 and 100, got %d", cfg.PromoDiscountPercent)
	}
	if cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
