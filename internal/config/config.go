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
	S3BucketName   string
	SNSAlertTopic  string // empty disables security alerts

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPFromName string
	SMTPUsername string
	SMTPPassword string

	// Verification flow. The two booleans are development affordances and are
	// forced off in production by Load, regardless of the environment values.
	VerificationCodeTTL     time.Duration
	VerificationMaxAttempts int
	AllowPersonalEmails     bool
	ReturnDevCode           bool

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Companies     string
	Users         string
	Verifications string
}

// IsProduction reports whether the service runs with production safety rails.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// Load reads all configuration from environment variables.
//
// The production boundary for the verification dev toggles is enforced here
// and only here: when APP_ENV=production, ALLOW_PERSONAL_EMAIL_VERIFICATION
// and RETURN_VERIFICATION_CODE are inert no matter what they are set to.
func Load() *Config {
	cfg := &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Companies:     getEnv("DYNAMO_TABLE_COMPANIES", "companies"),
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			Verifications: getEnv("DYNAMO_TABLE_EMPLOYEE_VERIFICATIONS", "employee_verifications"),
		},
		S3BucketName:  getEnv("S3_BUCKET_NAME", "corpdeals-assets"),
		SNSAlertTopic: getEnv("SNS_ALERT_TOPIC_ARN", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@corpdeals.example"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "CorpDeals"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		VerificationCodeTTL:     time.Duration(getEnvInt("VERIFICATION_CODE_TTL_MINUTES", 15)) * time.Minute,
		VerificationMaxAttempts: getEnvInt("VERIFICATION_CODE_MAX_ATTEMPTS", 5),
		AllowPersonalEmails:     getEnvBool("ALLOW_PERSONAL_EMAIL_VERIFICATION", false),
		ReturnDevCode:           getEnvBool("RETURN_VERIFICATION_CODE", false),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}

	if cfg.IsProduction() {
		cfg.AllowPersonalEmails = false
		cfg.ReturnDevCode = false
	} else {
		// Outside production the code is always surfaced to keep local
		// development and tests operable without a mail provider.
		cfg.ReturnDevCode = true
	}

	return cfg
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
		return v == "true" || v == "1"
	}
	return fallback
}
