package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Delivery policies for notifier failures during Register / RequestPasswordReset
const (
	DeliveryBestEffort = "best_effort"
	DeliveryStrict     = "strict"
)

// Config represents the application configuration
type Config struct {
	// API contains API server configuration
	API APIConfig
	// Auth contains authentication configuration
	Auth AuthConfig
	// Lifecycle contains the account lifecycle timing and threshold rules
	Lifecycle LifecycleConfig
	// Database contains database configuration
	Database DatabaseConfig
	// Email contains email service configuration
	Email EmailConfig
	// Sweeper contains the expired-secret cleanup job configuration
	Sweeper SweeperConfig
	// Log contains logger configuration
	Log LogConfig

	// Rate Limiting Configuration
	RateLimit struct {
		Requests int // Number of requests allowed per window
		Window   int // Time window in seconds
		Burst    int // Maximum burst size
	}
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname
	Host string
	// Port is the database server port
	Port int
	// User is the database username
	User string
	// Password is the database password
	Password string
	// DBName is the database name
	DBName string
	// SSLMode is the SSL mode for the database connection
	SSLMode string
	// MigrationsPath is the path to database migrations
	MigrationsPath string
}

// APIConfig contains API server settings
type APIConfig struct {
	// Port is the server port to listen on
	Port string
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	// JWTSecret is the secret key used to sign JWT tokens
	JWTSecret string
	// JWTIssuer is written into the iss claim
	JWTIssuer string
	// TokenTTL is the lifetime of an issued authentication token
	TokenTTL time.Duration
	// BcryptCost is the bcrypt work factor
	BcryptCost int
}

// LifecycleConfig contains the rules the account lifecycle service enforces
type LifecycleConfig struct {
	OTPTTL              time.Duration
	ResetTokenTTL       time.Duration
	MaxFailedAttempts   int
	LockoutDuration     time.Duration
	RegisterMinStrength int
	ResetMinStrength    int
	// DeliveryPolicy is either DeliveryBestEffort or DeliveryStrict
	DeliveryPolicy string
	// ConcealUnknownReset hides whether an email exists on reset requests
	ConcealUnknownReset bool
}

// EmailConfig contains email service settings
type EmailConfig struct {
	// SMTPHost is the SMTP server hostname
	SMTPHost string
	// SMTPPort is the SMTP server port
	SMTPPort int
	// SMTPUsername is the SMTP authentication username
	SMTPUsername string
	// SMTPPassword is the SMTP authentication password
	SMTPPassword string
	// FromAddress is the email address used as sender
	FromAddress string
	// AppURL is the base URL of the application
	AppURL string
}

// SweeperConfig contains the scheduled cleanup settings
type SweeperConfig struct {
	Enabled bool
	// Schedule in cron format (e.g. "*/10 * * * *" for every 10 minutes)
	Schedule string
}

// LogConfig contains logger settings
type LogConfig struct {
	Level string
	// Format is "json" or "console"
	Format string
}

// LoadFromEnv retrieves configuration from environment variables
func (c *Config) LoadFromEnv() error {
	c.API = APIConfig{
		Port: getEnvOrDefault("API_PORT", "8080"),
	}
	c.Database = DatabaseConfig{
		Host:           getEnvOrDefault("DB_HOST", "localhost"),
		Port:           getEnvAsInt("DB_PORT", 5432),
		User:           getEnvOrDefault("DB_USER", "postgres"),
		Password:       getEnvOrDefault("DB_PASSWORD", "postgres"),
		DBName:         getEnvOrDefault("DB_NAME", "gatekeeper"),
		SSLMode:        getEnvOrDefault("DB_SSL_MODE", "disable"),
		MigrationsPath: getEnvOrDefault("DB_MIGRATIONS_PATH", "migrations"),
	}
	c.Auth = AuthConfig{
		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTIssuer:  getEnvOrDefault("JWT_ISSUER", "gatekeeper"),
		TokenTTL:   getEnvAsDuration("TOKEN_TTL", time.Hour),
		BcryptCost: getEnvAsInt("BCRYPT_COST", 10),
	}
	c.Lifecycle = LifecycleConfig{
		OTPTTL:              getEnvAsDuration("OTP_TTL", 15*time.Minute),
		ResetTokenTTL:       getEnvAsDuration("RESET_TOKEN_TTL", time.Hour),
		MaxFailedAttempts:   getEnvAsInt("MAX_FAILED_ATTEMPTS", 5),
		LockoutDuration:     getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
		RegisterMinStrength: getEnvAsInt("REGISTER_MIN_STRENGTH", 5),
		ResetMinStrength:    getEnvAsInt("RESET_MIN_STRENGTH", 3),
		DeliveryPolicy:      strings.ToLower(getEnvOrDefault("DELIVERY_POLICY", DeliveryBestEffort)),
		ConcealUnknownReset: getEnvAsBool("RESET_CONCEAL_UNKNOWN", false),
	}
	c.Email = EmailConfig{
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FromAddress:  os.Getenv("SMTP_FROM"),
		AppURL:       getEnvOrDefault("APP_URL", "http://localhost:4000"),
	}
	c.Sweeper = SweeperConfig{
		Enabled:  getEnvAsBool("SWEEPER_ENABLED", true),
		Schedule: getEnvOrDefault("SWEEPER_SCHEDULE", "*/10 * * * *"),
	}
	c.Log = LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
	}

	// Load rate limit configuration
	c.RateLimit.Requests = getEnvAsInt("RATE_LIMIT_REQUESTS", 100)
	c.RateLimit.Window = getEnvAsInt("RATE_LIMIT_WINDOW", 60)
	c.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 20)

	return c.Validate()
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.Lifecycle.MaxFailedAttempts < 1 {
		return fmt.Errorf("MAX_FAILED_ATTEMPTS must be at least 1")
	}
	if c.Lifecycle.OTPTTL <= 0 || c.Lifecycle.ResetTokenTTL <= 0 || c.Lifecycle.LockoutDuration <= 0 {
		return fmt.Errorf("OTP_TTL, RESET_TOKEN_TTL and LOCKOUT_DURATION must be positive")
	}
	for name, v := range map[string]int{
		"REGISTER_MIN_STRENGTH": c.Lifecycle.RegisterMinStrength,
		"RESET_MIN_STRENGTH":    c.Lifecycle.ResetMinStrength,
	} {
		if v < 0 || v > 5 {
			return fmt.Errorf("%s must be between 0 and 5", name)
		}
	}
	switch c.Lifecycle.DeliveryPolicy {
	case DeliveryBestEffort, DeliveryStrict:
	default:
		return fmt.Errorf("DELIVERY_POLICY must be %q or %q", DeliveryBestEffort, DeliveryStrict)
	}
	if c.RateLimit.Requests < 1 || c.RateLimit.Window < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// getEnvAsInt retrieves an environment variable and converts it to an integer
func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvAsBool retrieves an environment variable and converts it to a boolean
func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvAsDuration retrieves an environment variable as a time.Duration ("15m", "1h")
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvOrDefault(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
