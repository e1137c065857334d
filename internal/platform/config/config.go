package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	PublicBaseURL  string
	RequestTimeout time.Duration
	LogLevel       slog.Level
	// TrustedProxies are addresses or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string
}

// DatabaseConfig selects the Profile Store. An empty URL keeps everything in memory.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	TxTimeout    time.Duration
}

// RedisConfig backs the admin-auth rate limiter. An empty URL uses the in-memory limiter.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables domain-event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// StripeConfig configures the payment gateway. An empty SecretKey selects the
// local signing gateway used in development.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// AdminConfig holds the bypass secret and the admin token settings. An empty
// TokenSigningKey leaves key selection to main.
type AdminConfig struct {
	BypassKey            string
	BypassKeyHash        string
	TokenSigningKey      string
	TokenTTL             time.Duration
	AuthAttemptsPerMin   int
	DiagnosisProviderKey string
}

// Registration holds onboarding grants and the liability waiver gate.
type Registration struct {
	ProfessionalWelcomeCredits int
	RequireWaiver              bool
}

type Config struct {
	Server       Server
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Stripe       StripeConfig
	Admin        AdminConfig
	Registration Registration
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:           getenv("ATENEO_ADDR", ":8080"),
			PublicBaseURL:  strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			RequestTimeout: getDuration("REQUEST_TIMEOUT", 15*time.Second),
			LogLevel:       parseLevel(os.Getenv("LOG_LEVEL")),
			TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: getInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getInt("DATABASE_MAX_IDLE_CONNS", 5),
			TxTimeout:    getDuration("DATABASE_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenv("KAFKA_TOPIC", "ateneo.events"),
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
		Admin: AdminConfig{
			BypassKey:            os.Getenv("ADMIN_BYPASS_KEY"),
			BypassKeyHash:        os.Getenv("ADMIN_BYPASS_KEY_HASH"),
			TokenSigningKey:      os.Getenv("ADMIN_TOKEN_SIGNING_KEY"),
			TokenTTL:             getDuration("ADMIN_TOKEN_TTL", time.Hour),
			AuthAttemptsPerMin:   getInt("ADMIN_AUTH_ATTEMPTS_PER_MINUTE", 5),
			DiagnosisProviderKey: os.Getenv("DIAGNOSIS_PROVIDER_KEY"),
		},
		Registration: Registration{
			ProfessionalWelcomeCredits: getInt("PROFESSIONAL_WELCOME_CREDITS", 1),
			RequireWaiver:              getBool("REQUIRE_WAIVER", true),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
