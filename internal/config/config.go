package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	BackendBaseURL string
	BackendTimeout time.Duration

	DetectorBaseURL        string
	DetectorScoreThreshold float64
	FacePollInterval       time.Duration
	FaceCropPadding        float64
	VerificationTTL        time.Duration
	StepUpIdleTimeout      time.Duration

	AWSRegion          string
	AWSEndpointURL     string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID     string
	AWSSecretKey       string
	DynamoTables       DynamoTables
	ClientStateBackend string // "dynamo" | "memory"
	S3BucketName       string
	SNSRegion          string
	AuditTopicARN      string // empty disables SNS publishing

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	TokenSealKey      string // hex-encoded 32 bytes

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	ClientState string
	AuditEvents string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BackendBaseURL: strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://127.0.0.1:8000/api"), "/"),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 15*time.Second),

		DetectorBaseURL:        strings.TrimRight(getEnv("DETECTOR_BASE_URL", "http://127.0.0.1:8500"), "/"),
		DetectorScoreThreshold: getEnvFloat("DETECTOR_SCORE_THRESHOLD", 0.5),
		FacePollInterval:       getEnvDuration("FACE_POLL_INTERVAL", 500*time.Millisecond),
		FaceCropPadding:        getEnvFloat("FACE_CROP_PADDING", 0.2),
		VerificationTTL:        getEnvDuration("VERIFICATION_TTL", 5*time.Minute),
		StepUpIdleTimeout:      getEnvDuration("STEPUP_IDLE_TIMEOUT", 30*time.Minute),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			ClientState: getEnv("DYNAMO_TABLE_CLIENT_STATE", "client_state"),
			AuditEvents: getEnv("DYNAMO_TABLE_AUDIT_EVENTS", "audit_events"),
		},
		ClientStateBackend: getEnv("CLIENT_STATE_BACKEND", "dynamo"),
		S3BucketName:       getEnv("S3_BUCKET_NAME", "biopass-diagnostics"),
		SNSRegion:          getEnv("SNS_REGION", "us-east-1"),
		AuditTopicARN:      getEnv("AUDIT_TOPIC_ARN", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 12)) * time.Hour,
		TokenSealKey:      getEnv("TOKEN_SEAL_KEY", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3001"), ","),
	}
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

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

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("500ms", "5m").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
