package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	RedisURL string

	CodeTTL     time.Duration // one-time-code + pending payload expiry
	CodeHashKey string        // server-side pepper mixed into code hashes

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	SubjectTokenTTL   time.Duration
	ScopedTokenTTL    time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	AlertTopicARN string // SNS topic for operational alerts; empty disables

	ProfileServices ProfileServices

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Identities string
}

// ProfileServices holds the base URL and call policy for each downstream
// role-specific profile service.
type ProfileServices struct {
	UserBaseURL    string
	PartnerBaseURL string
	Timeout        time.Duration
	MaxRetries     int
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Identities: getEnv("DYNAMO_TABLE_IDENTITIES", "identities"),
		},

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		CodeTTL:     getEnvDuration("CODE_TTL", 300*time.Second),
		CodeHashKey: getEnv("CODE_HASH_KEY", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		SubjectTokenTTL:   getEnvDuration("SUBJECT_TOKEN_TTL", 24*time.Hour),
		ScopedTokenTTL:    getEnvDuration("SCOPED_TOKEN_TTL", 5*time.Minute),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		AlertTopicARN: getEnv("ALERT_TOPIC_ARN", ""),

		ProfileServices: ProfileServices{
			UserBaseURL:    getEnv("PROFILE_USER_BASE_URL", "http://localhost:4001"),
			PartnerBaseURL: getEnv("PROFILE_PARTNER_BASE_URL", "http://localhost:4002"),
			Timeout:        getEnvDuration("PROFILE_TIMEOUT", 5*time.Second),
			MaxRetries:     getEnvInt("PROFILE_MAX_RETRIES", 3),
		},

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
