package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                string
	GoogleProjectID     string
	FirebaseCredentials string
	PubSubTopic         string
	PubSubSubscription  string
	DatabaseURL         string
	StoreDriver         string // "firestore" or "memory"
	AuthProvider        string // "firebase" or "jwt"
	JWTSecret           string
	AuthRequiredRole    string
	FCMBatchRPS         float64
	ProviderTimeout     time.Duration
	LogLevel            string
	LogFormat           string // "json" or "console"
	MigrateCredentials  string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	providerTimeout := 30 * time.Second
	if v := os.Getenv("PROVIDER_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			providerTimeout = parsed
		}
	}

	var batchRPS float64
	if v := os.Getenv("FCM_BATCH_RPS"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			batchRPS = parsed
		}
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		PubSubTopic:         getEnv("PUBSUB_TOPIC", ""),
		PubSubSubscription:  getEnv("PUBSUB_SUBSCRIPTION", ""),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		StoreDriver:         getEnv("STORE_DRIVER", "firestore"),
		AuthProvider:        getEnv("AUTH_PROVIDER", "firebase"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		AuthRequiredRole:    getEnv("AUTH_REQUIRED_ROLE", ""),
		FCMBatchRPS:         batchRPS,
		ProviderTimeout:     providerTimeout,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		MigrateCredentials:  getEnv("MIGRATE_CREDENTIALS", "notify-server/service-account.json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
