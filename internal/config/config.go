package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds runtime settings for the server, the CLI and the simulation
type Config struct {
	Env                     string
	Debug                   bool
	Port                    string
	DBDriver                string
	DatabaseURL             string
	JWTSecret               string
	APIURL                  string
	TokenFile               string
	HTTPTimeout             time.Duration
	SettlementCloseInterval time.Duration
	RateLimit               bool
}

const (
	DefaultPort                    = "8080"
	DefaultDBDriver                = "sqlite"
	DefaultDatabaseURL             = "studio.db"
	DefaultJWTSecret               = "studio-secret-key"
	DefaultAPIURL                  = "http://localhost:8080/api"
	DefaultHTTPTimeout             = 10 * time.Second
	DefaultSettlementCloseInterval = time.Hour
)

// Load reads the environment. Call godotenv.Load first if a .env file
// should be honoured. Invalid values are logged and replaced by defaults.
func Load() *Config {
	cfg := &Config{
		Env:                     getEnv("ENV", "development"),
		Debug:                   getBool("DEBUG", false),
		Port:                    getEnv("PORT", DefaultPort),
		DBDriver:                strings.ToLower(getEnv("DB_DRIVER", DefaultDBDriver)),
		DatabaseURL:             getEnv("DATABASE_URL", DefaultDatabaseURL),
		JWTSecret:               getEnv("JWT_SECRET", DefaultJWTSecret),
		APIURL:                  getEnv("STUDIO_API_URL", DefaultAPIURL),
		TokenFile:               os.Getenv("STUDIO_TOKEN_FILE"),
		HTTPTimeout:             getDuration("HTTP_TIMEOUT", DefaultHTTPTimeout),
		SettlementCloseInterval: getDuration("SETTLEMENT_CLOSE_INTERVAL", DefaultSettlementCloseInterval),
		RateLimit:               getBool("RATE_LIMIT", true),
	}

	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		log.Warn().Str("value", cfg.DBDriver).Msg("unsupported DB_DRIVER, using sqlite")
		cfg.DBDriver = DefaultDBDriver
	}
	if cfg.IsProduction() && cfg.JWTSecret == DefaultJWTSecret {
		log.Warn().Msg("JWT_SECRET not set, using the development secret")
	}
	return cfg
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid boolean, using default")
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Dur("default", fallback).Msg("invalid duration, using default")
		return fallback
	}
	return v
}
