package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	Port        int
	LogLevel    string

	// AWS / queue
	AWSRegion              string
	QueueURL               string
	QueueBatchSize         int
	QueueWaitTime          time.Duration
	QueueVisibilityTimeout time.Duration

	// Blob storage
	RawBucket       string
	ProcessedBucket string
	RawImagePrefix  string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// SMTP alerting
	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	AlertEmail string

	// Redis cache (optional, disabled when addr is empty)
	RedisAddr     string
	RedisPassword string

	// NATS (for broadcasting alert and image events)
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int

	// Worker loops
	ImagePollInterval time.Duration
	PollBackoff       time.Duration

	// Auth
	JWTSecret string

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnvInt("PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// AWS / queue
		AWSRegion:              getEnv("AWS_DEFAULT_REGION", "us-east-1"),
		QueueURL:               getEnv("SQS_QUEUE_URL", ""),
		QueueBatchSize:         getEnvInt("SQS_BATCH_SIZE", 10),
		QueueWaitTime:          getEnvDuration("SQS_WAIT_TIME", 20*time.Second),
		QueueVisibilityTimeout: getEnvDuration("SQS_VISIBILITY_TIMEOUT", 5*time.Minute),

		// Blob storage
		RawBucket:       getEnv("RAW_IMAGES_BUCKET", ""),
		ProcessedBucket: getEnv("PROCESSED_IMAGES_BUCKET", ""),
		RawImagePrefix:  getEnv("RAW_IMAGE_PREFIX", "drone-images/"),

		// Database
		DBHost:     getEnv("DB_HOST", "postgres"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "agro"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "agrodb"),

		// SMTP alerting
		SMTPHost:   getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:   getEnvInt("SMTP_PORT", 587),
		SMTPUser:   getEnv("SMTP_USER", ""),
		SMTPPass:   getEnv("SMTP_PASS", ""),
		AlertEmail: getEnv("ALERT_EMAIL", "alertas@agrosynchro.com"),

		// Redis cache
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		// NATS
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited

		// Worker loops
		ImagePollInterval: getEnvDuration("IMAGE_POLL_INTERVAL", 30*time.Second),
		PollBackoff:       getEnvDuration("POLL_BACKOFF", 2*time.Second),

		// Auth
		JWTSecret: getEnv("JWT_SECRET", ""),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// DSN builds the Postgres connection string for gorm.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}

// Helper function for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}
