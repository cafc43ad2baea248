package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Auth     AuthConfig
	Password PasswordConfig
	Payments PaymentsConfig
	Email    EmailConfig
	Portal   PortalConfig
	Notify   NotifyConfig
	Log      LogConfig
}

// DefaultJWTSecret is only accepted in development.
const DefaultJWTSecret = "dev-only-secret-change-in-prod"

type ServerConfig struct {
	Environment  string // development, test or production
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
}

// RedisConfig is optional: an empty URL disables idempotency caching and OTP throttling.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// NATSConfig is optional: an empty URL makes event publishing a no-op.
type NATSConfig struct {
	URL   string
	Queue string
}

type AuthConfig struct {
	JWTSecret            string
	Audience             string
	SessionTTL           time.Duration
	PendingChallengeTTL  time.Duration
	VerifiedChallengeTTL time.Duration
	OTPTTL               time.Duration
	OTPIssueLimit        int
	OTPIssueWindow       time.Duration
	// Per-IP limit on the unauthenticated credential endpoints
	CredentialRateLimit  int
	CredentialRateWindow time.Duration
}

type PasswordConfig struct {
	Hasher     string // argon2id or bcrypt
	BcryptCost int
}

type PaymentsConfig struct {
	Provider          string // razorpay or stripe
	Currency          string
	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string
	StripeSecretKey   string
}

type EmailConfig struct {
	Driver        string // dev, smtp or mailersend
	FromName      string
	FromEmail     string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPUseTLS    bool
	MailerSendKey string
}

type PortalConfig struct {
	InstituteName  string
	AccessCode     string
	AllowedOrigins []string
}

type NotifyConfig struct {
	Port string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

// Load reads .env files (when present) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Environment:  getEnv("APP_ENV", "production"),
			Port:         getEnv("PORT", "5000"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustProxy:   getBool("TRUST_PROXY", false),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DATABASE", "institute"),
			ConnectTimeout: getDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			QueryTimeout:   getDuration("MONGO_QUERY_TIMEOUT", 3*time.Second),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:   getEnv("NATS_URL", ""),
			Queue: getEnv("NATS_QUEUE", "notify-workers"),
		},
		Auth: AuthConfig{
			JWTSecret:            getEnv("JWT_SECRET", DefaultJWTSecret),
			Audience:             getEnv("JWT_AUDIENCE", "institute-portal"),
			SessionTTL:           getDuration("SESSION_TOKEN_TTL", 24*time.Hour),
			PendingChallengeTTL:  getDuration("PENDING_CHALLENGE_TTL", 5*time.Minute),
			VerifiedChallengeTTL: getDuration("VERIFIED_CHALLENGE_TTL", 30*time.Minute),
			OTPTTL:               getDuration("OTP_TTL", 5*time.Minute),
			OTPIssueLimit:        getInt("OTP_ISSUE_LIMIT", 5),
			OTPIssueWindow:       getDuration("OTP_ISSUE_WINDOW", 15*time.Minute),
			CredentialRateLimit:  getInt("CREDENTIAL_RATE_LIMIT", 20),
			CredentialRateWindow: getDuration("CREDENTIAL_RATE_WINDOW", time.Minute),
		},
		Password: PasswordConfig{
			Hasher:     getEnv("PASSWORD_HASHER", "argon2id"),
			BcryptCost: getInt("BCRYPT_COST", 10),
		},
		Payments: PaymentsConfig{
			Provider:          getEnv("PAYMENT_PROVIDER", "razorpay"),
			Currency:          getEnv("PAYMENT_CURRENCY", "INR"),
			RazorpayKeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			RazorpayKeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
			RazorpayBaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
			StripeSecretKey:   getEnv("STRIPE_SECRET_KEY", ""),
		},
		Email: EmailConfig{
			Driver:        getEnv("EMAIL_DRIVER", "dev"),
			FromName:      getEnv("EMAIL_FROM_NAME", "Institute Portal"),
			FromEmail:     getEnv("EMAIL_USER", "noreply@institute.local"),
			SMTPHost:      getEnv("SMTP_HOST", "localhost"),
			SMTPPort:      getInt("SMTP_PORT", 1025),
			SMTPUser:      getEnv("SMTP_USER", ""),
			SMTPPass:      getEnv("SMTP_PASS", ""),
			SMTPUseTLS:    getBool("SMTP_USE_TLS", false),
			MailerSendKey: getEnv("MAILERSEND_API_KEY", ""),
		},
		Portal: PortalConfig{
			InstituteName:  getEnv("INSTITUTE_NAME", "Maharaja Agrasen Institute"),
			AccessCode:     getEnv("ACCESS_CODE", ""),
			AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Notify: NotifyConfig{
			Port: getEnv("NOTIFY_PORT", "8086"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// IsDevelopment reports whether the process runs outside production.
func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(c.Server.Environment) {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}

// Validate rejects settings that are only safe on a developer machine.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.Auth.JWTSecret == DefaultJWTSecret && !c.IsDevelopment() {
		return errors.New("JWT_SECRET is the development default; set a secret or APP_ENV=development")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
