package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string `env:"DATABASE_URL,required,notEmpty"`
	JWTSecretKey string `env:"JWT_SECRET_KEY,required,notEmpty"`
	ServerPort   int    `env:"SERVER_PORT" envDefault:"8080"`

	WebhookSecret     string  `env:"WEBHOOK_SECRET,required,notEmpty"`
	AdminIDs          []int64 `env:"ADMIN_IDS" envSeparator:","`
	AdminPasswordHash string  `env:"ADMIN_PASSWORD_HASH"`

	ReferralReward     int64         `env:"REFERRAL_REWARD" envDefault:"25"`
	FreeEntryFee       int64         `env:"FREE_ENTRY_FEE" envDefault:"50"`
	UTRLength          int           `env:"UTR_LENGTH" envDefault:"12"`
	SessionStepTimeout time.Duration `env:"SESSION_STEP_TIMEOUT" envDefault:"15m"`
	ActivePageSize     int           `env:"ACTIVE_PAGE_SIZE" envDefault:"10"`
	Timezone           string        `env:"TIMEZONE" envDefault:"Asia/Kolkata"`

	StoreTimeout  time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
	AITimeout     time.Duration `env:"AI_TIMEOUT" envDefault:"10s"`

	AIAPIURL string `env:"AI_API_URL" envDefault:"https://api.openai.com/v1/chat/completions"`
	AIAPIKey string `env:"AI_API_KEY"`
	AIModel  string `env:"AI_MODEL" envDefault:"gpt-4o-mini"`

	// Пустой REDIS_URL означает хранение сессий в памяти.
	RedisURL string `env:"REDIS_URL"`

	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `env:"R2_BUCKET_NAME"`
	R2PublicBaseURL   string `env:"R2_PUBLIC_BASE_URL"`

	PaymentUPIID string   `env:"PAYMENT_UPI_ID"`
	Maps         []string `env:"MAPS" envSeparator:"," envDefault:"Erangel,Miramar,Sanhok,Vikendi,Livik,Karakin"`

	Location *time.Location `env:"-"`
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.ReferralReward < 0 {
		return fmt.Errorf("REFERRAL_REWARD must not be negative, got %d", c.ReferralReward)
	}
	if c.FreeEntryFee <= 0 {
		return fmt.Errorf("FREE_ENTRY_FEE must be positive, got %d", c.FreeEntryFee)
	}
	if c.UTRLength <= 0 {
		return fmt.Errorf("UTR_LENGTH must be positive, got %d", c.UTRLength)
	}
	if c.ActivePageSize <= 0 {
		return fmt.Errorf("ACTIVE_PAGE_SIZE must be positive, got %d", c.ActivePageSize)
	}
	if c.SessionStepTimeout <= 0 || c.StoreTimeout <= 0 || c.NotifyTimeout <= 0 || c.AITimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if len(c.AdminIDs) == 0 {
		return errors.New("ADMIN_IDS must list at least one admin chat id")
	}

	maps := make([]string, 0, len(c.Maps))
	for _, m := range c.Maps {
		if m = strings.TrimSpace(m); m != "" {
			maps = append(maps, m)
		}
	}
	if len(maps) == 0 {
		return errors.New("MAPS must list at least one map")
	}
	c.Maps = maps

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc
	return nil
}

// ProofUploadEnabled сообщает, настроено ли хранилище для скриншотов оплаты.
func (c *Config) ProofUploadEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}
