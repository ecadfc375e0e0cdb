package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Env  string
	Port int

	// store
	StoreDriver       string
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool
	DBURL             string
	StoreTimeout      time.Duration

	// auth
	JWTSecret        string
	JWTTTL           time.Duration
	EnforceOwnership bool
	AdminEmail       string
	AdminName        string

	// payments
	StripeSecretKey string

	// http
	CORSAllowedOrigins []string
	MaxBodyBytes       int64
	RateLimitPerMinute int
	PublicCacheTTL     time.Duration

	// redis (rate limiter backend)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// tracing
	OTLPEndpoint string

	// worker
	WorkerPollInterval time.Duration
	WorkerHealthPort   int
	WorkerMaxAttempts  int
}

func Load() Config {
	// .env is optional, real environment wins
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 5000),

		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		MongoURI:          getEnv("DB_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase:     getEnv("DB_NAME", "TechDiscoveriaDB"),
		MongoTransactions: getEnvBool("MONGO_TRANSACTIONS", false),
		DBURL:             buildDBURL(),
		StoreTimeout:      time.Duration(getEnvInt("STORE_TIMEOUT_SECONDS", 5)) * time.Second,

		JWTSecret:        getEnv("JWT_TOKEN_SECRET", os.Getenv("JWT_SECRET")),
		JWTTTL:           time.Duration(getEnvInt("JWT_TTL_HOURS", 6)) * time.Hour,
		EnforceOwnership: getEnvBool("AUTHZ_ENFORCE_OWNERSHIP", true),
		AdminEmail:       getEnv("ADMIN_EMAIL", ""),
		AdminName:        getEnv("ADMIN_NAME", "Administrator"),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		PublicCacheTTL:     time.Duration(getEnvInt("PUBLIC_CACHE_TTL_SECONDS", 0)) * time.Second,

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		WorkerPollInterval: time.Duration(getEnvInt("WORKER_POLL_MS", 500)) * time.Millisecond,
		WorkerHealthPort:   getEnvInt("WORKER_HEALTH_PORT", 8081),
		WorkerMaxAttempts:  getEnvInt("WORKER_MAX_ATTEMPTS", 10),
	}
}

// Validate reports configuration faults that must stop the process before it serves traffic.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_TOKEN_SECRET must be set")
	}

	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be positive, got %s", c.JWTTTL)
	}

	switch c.StoreDriver {
	case StoreMongo, StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.Port <= 0 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}

	return nil
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "discoveria")
	pass := getEnv("DB_PASSWORD", "discoveria")
	name := getEnv("DB_PG_NAME", "discoveria")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
