package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
	"golang.org/x/crypto/bcrypt"
)

const minSessionSecretLen = 32

type Config struct {
	AppEnv               string `env:"APP_ENV" default:"development"`
	Port                 string `env:"PORT" default:"8080"`
	DatabaseURL          string `env:"DATABASE_URL"`
	RedisURL             string `env:"REDIS_URL"`
	SessionSecret        string `env:"SESSION_SECRET"`
	MessageEncryptionKey string `env:"MESSAGE_ENCRYPTION_KEY"`
	AllowedEmailDomain   string `env:"ALLOWED_EMAIL_DOMAIN" default:"southernct.edu"`
	AdminEmails          string `env:"ADMIN_EMAILS"`
	LogLevel             string `env:"LOG_LEVEL" default:"info"`
	LogFormat            string `env:"LOG_FORMAT" default:"text"`

	BcryptCost    int     `env:"BCRYPT_COST" default:"12"`
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT" default:"1"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST" default:"10"`

	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.AllowedEmailDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.AllowedEmailDomain), "@"))

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// AdminEmailList returns the normalized admin allow-list.
func (c *Config) AdminEmailList() []string {
	var emails []string
	for _, e := range strings.Split(c.AdminEmails, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			emails = append(emails, e)
		}
	}
	return emails
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if len(cfg.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	}
	if cfg.AllowedEmailDomain == "" {
		return errors.New("ALLOWED_EMAIL_DOMAIN must not be empty")
	}

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.AuthRateLimit <= 0 || cfg.AuthRateBurst <= 0 {
		return errors.New("AUTH_RATE_LIMIT and AUTH_RATE_BURST must be positive")
	}

	if cfg.MessageEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(cfg.MessageEncryptionKey)
		if err != nil {
			return fmt.Errorf("MESSAGE_ENCRYPTION_KEY must be valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("MESSAGE_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
		}
	}

	return nil
}
