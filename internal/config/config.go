package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	ScoringAPIURL     string        `mapstructure:"SCORING_API_URL"`
	ScoringAPITimeout time.Duration `mapstructure:"SCORING_API_TIMEOUT"`
	ScoringAPIKey     string        `mapstructure:"SCORING_API_KEY"`
	ScoringMaxRetries int           `mapstructure:"SCORING_MAX_RETRIES"`
	SearchRadiusKM    float64       `mapstructure:"SEARCH_RADIUS_KM"`

	DatabaseURL   string        `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32         `mapstructure:"DB_MIN_CONNS"`
	SessionSecret string        `mapstructure:"SESSION_SECRET"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`
	EncryptionKey string        `mapstructure:"ENCRYPTION_KEY"`

	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
	Timezone       string        `mapstructure:"TIMEZONE"`

	EnableNotifications bool   `mapstructure:"ENABLE_NOTIFICATIONS"`
	SMTPHost            string `mapstructure:"SMTP_HOST"`
	SMTPPort            int    `mapstructure:"SMTP_PORT"`
	SMTPUsername        string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword        string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom            string `mapstructure:"SMTP_FROM"`
}

var envKeys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"SCORING_API_URL", "SCORING_API_TIMEOUT", "SCORING_API_KEY", "SCORING_MAX_RETRIES", "SEARCH_RADIUS_KM",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "SESSION_SECRET", "SESSION_TTL", "ENCRYPTION_KEY",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT", "TIMEZONE",
	"ENABLE_NOTIFICATIONS", "SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SCORING_API_URL", "http://localhost:5000/api")
	v.SetDefault("SCORING_API_TIMEOUT", "10s")
	v.SetDefault("SCORING_MAX_RETRIES", 2)
	v.SetDefault("SEARCH_RADIUS_KM", 15)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "64K")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("ENABLE_NOTIFICATIONS", false)
	v.SetDefault("SMTP_PORT", 587)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// viper splits on commas without trimming, so re-split the raw value.
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if cfg.IsDev() && cfg.SessionSecret == "" {
		log.Println("WARNING: SESSION_SECRET is not set; a random key will be generated and sessions will not survive restarts.")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SessionKey returns the decoded SESSION_SECRET, or nil when unset.
func (c *Config) SessionKey() ([]byte, error) {
	if c.SessionSecret == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("SESSION_SECRET is not valid hex: %w", err)
	}
	return key, nil
}

// EncryptionKeyBytes returns the decoded ENCRYPTION_KEY, or nil when unset.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

// Location resolves TIMEZONE for rendering assessment timestamps.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Validate checks that the configuration is safe to run. Production requires
// a session signing secret, and an encryption key whenever sessions are
// persisted to Postgres.
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "production" && c.Env != "test" {
		return fmt.Errorf("ENV must be \"development\", \"production\", or \"test\", got %q", c.Env)
	}
	if c.ScoringAPITimeout <= 0 {
		return fmt.Errorf("SCORING_API_TIMEOUT must be positive, got %s", c.ScoringAPITimeout)
	}
	if c.SearchRadiusKM <= 0 {
		return fmt.Errorf("SEARCH_RADIUS_KM must be positive, got %g", c.SearchRadiusKM)
	}

	key, err := c.SessionKey()
	if err != nil {
		return err
	}
	if c.IsProduction() && len(key) < 32 {
		return fmt.Errorf("SESSION_SECRET of at least 32 bytes (64 hex chars) is required in production")
	}

	if _, err := c.EncryptionKeyBytes(); err != nil {
		return err
	}
	if c.IsProduction() && c.DatabaseURL != "" && c.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required in production when DATABASE_URL is set")
	}

	if c.EnableNotifications {
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when ENABLE_NOTIFICATIONS is true")
		}
		if c.SMTPFrom == "" {
			return fmt.Errorf("SMTP_FROM is required when ENABLE_NOTIFICATIONS is true")
		}
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	return nil
}
