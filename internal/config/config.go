// Package config reads process settings from the environment. A .env file in
// the working directory, when present, is loaded first and never overrides
// variables that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	DevSeed     bool

	// BooksAPIURL switches the journal desk to a remote books API.
	BooksAPIURL   string
	BooksAPIToken string

	KafkaBrokers []string
	KafkaTopic   string

	LogLevel  string
	LogFormat string

	BalanceTolerance decimal.Decimal
	Currency         string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	SessionMaxIdle time.Duration
}

// Load reads a .env file (if any) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any variable source.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		HTTPAddr:      get("HTTP_ADDR", ":8080"),
		DatabaseURL:   get("DATABASE_URL", ""),
		DevSeed:       truthy(get("DEV_SEED", "")),
		BooksAPIURL:   strings.TrimRight(get("BOOKS_API_URL", ""), "/"),
		BooksAPIToken: get("BOOKS_API_TOKEN", ""),
		KafkaTopic:    get("KAFKA_TOPIC", "voucher_created"),
		LogLevel:      get("LOG_LEVEL", "info"),
		LogFormat:     strings.ToLower(get("LOG_FORMAT", "json")),
		Currency:      strings.ToUpper(get("CURRENCY", "INR")),
		JWTSecret:     get("JWT_HS256_SECRET", ""),
		JWTIssuer:     get("JWT_ISSUER", ""),
		JWTAudience:   get("JWT_AUDIENCE", ""),
	}
	for _, b := range strings.Split(get("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}

	tol, err := decimal.NewFromString(get("BALANCE_TOLERANCE", "0.01"))
	if err != nil || !tol.IsPositive() {
		return Config{}, fmt.Errorf("BALANCE_TOLERANCE must be a positive decimal")
	}
	cfg.BalanceTolerance = tol

	idle, err := time.ParseDuration(get("SESSION_MAX_IDLE", "30m"))
	if err != nil || idle <= 0 {
		return Config{}, fmt.Errorf("SESSION_MAX_IDLE must be a positive duration")
	}
	cfg.SessionMaxIdle = idle

	if len(cfg.Currency) != 3 {
		return Config{}, fmt.Errorf("CURRENCY must be a 3-letter code, got %q", cfg.Currency)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}
	return cfg, nil
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	}
	return false
}
