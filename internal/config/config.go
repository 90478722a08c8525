package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AllowedOrigins []string // CORS allowed origins

	LogLevel  string
	LogFormat string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTPrivateKeyPath  string
	JWTPublicKeyPath   string
	JWTExpiry          time.Duration
	RefreshTokenExpiry time.Duration

	SMTPEnabled  bool
	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSEnabled bool
	SNSRegion  string

	RedisAddr     string // empty disables the sweeper lock and cross-instance push
	RedisPassword string
	RedisDB       int

	Sweeper  SweeperConfig
	Notifier NotifierConfig
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	Sessions      string
	Categories    string
	LostItems     string
	FoundItems    string
	Claims        string
	Notifications string
}

type SweeperConfig struct {
	Enabled       bool
	Hour          int // local hour of day the daily sweep runs at
	ThresholdDays int
	StatsInterval time.Duration
	LockTTL       time.Duration
}

type NotifierConfig struct {
	Workers   int
	QueueSize int
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions:      getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			Categories:    getEnv("DYNAMO_TABLE_CATEGORIES", "categories"),
			LostItems:     getEnv("DYNAMO_TABLE_LOST_ITEMS", "lost_items"),
			FoundItems:    getEnv("DYNAMO_TABLE_FOUND_ITEMS", "found_items"),
			Claims:        getEnv("DYNAMO_TABLE_CLAIMS", "claim_applications"),
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
		},
		JWTPrivateKeyPath:  getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:   getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:          time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		RefreshTokenExpiry: time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,
		SMTPEnabled:        getEnvBool("SMTP_ENABLED", false),
		SMTPHost:           getEnv("SMTP_HOST", "localhost"),
		SMTPPort:           getEnv("SMTP_PORT", "1025"),
		SMTPFrom:           getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SNSEnabled:         getEnvBool("SNS_ENABLED", false),
		SNSRegion:          getEnv("SNS_REGION", "us-east-1"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		Sweeper: SweeperConfig{
			Enabled:       getEnvBool("SWEEPER_ENABLED", true),
			Hour:          getEnvInt("SWEEPER_HOUR", 2),
			ThresholdDays: getEnvInt("SWEEPER_THRESHOLD_DAYS", 30),
			StatsInterval: getEnvDuration("SWEEPER_STATS_INTERVAL", time.Hour),
			LockTTL:       getEnvDuration("SWEEPER_LOCK_TTL", 30*time.Minute),
		},
		Notifier: NotifierConfig{
			Workers:   getEnvInt("NOTIFIER_WORKERS", 4),
			QueueSize: getEnvInt("NOTIFIER_QUEUE_SIZE", 1024),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
