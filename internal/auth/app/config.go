package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/fastlink/pkg/jwtx"
)

type Config struct {
	Issuer string // Required: issuer claim for tokens

	Algorithm      string        // Optional: JWT signing algorithm (ES256, EdDSA) (default: EdDSA)
	NumKeys        int           // Optional: number of signing keys to generate (default: 3, min: 1, max: 10)
	KeyStorageMode string        // Optional: key storage mode (ephemeral, persistent) (default: ephemeral)
	KeyGracePeriod time.Duration // Optional: how long a retired key keeps verifying (default: 30 days)
	MasterKeyPath  string        // Optional: path to master encryption key file (for persistent keys)
	PepperFile     string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	AccessTTL      time.Duration // Optional: access token lifetime (default: 1h)
	RefreshTTL     time.Duration // Optional: refresh token lifetime (default: 7d)

	SessionTransport string // Optional: bearer, cookie or both (default: both)
	CookieSecure     bool   // Optional: Secure attribute on session cookies (default: true outside dev)
	ClientURL        string // Optional: browser origin allowed by CORS

	DBDriver     string // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile string // Optional: path to SQLite database file (default: ./fastlink.db)
	DatabaseURL  string // Required for postgres: connection string

	OTPBackend     string        // Optional: sql or redis (default: sql)
	RedisAddr      string        // Required for redis OTPs
	RedisPassword  string        // Optional
	RedisDB        int           // Optional (default: 0)
	OTPTTL         time.Duration // Optional: code lifetime (default: 10m)
	OTPMaxAttempts int           // Optional: wrong guesses before a code is dead (default: 5)

	Notifier     string // Optional: log or smtp (default: log in dev and test, smtp elsewhere)
	SMTPHost     string // Required for smtp
	SMTPPort     int    // Optional (default: 587)
	SMTPUsername string // Optional
	SMTPPassword string // Optional
	SMTPFrom     string // Optional: sender address (default: SMTP_USERNAME)

	Env                  string        // Environment (dev, test, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	env := getEnvOrDefault("ENV", "dev")

	notifier := "smtp"
	if isLocalEnv(env) {
		notifier = "log"
	}

	cfg := Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "fastlink"),
		Algorithm:      getEnvOrDefault("AUTH_ALGORITHM", jwtx.AlgorithmEdDSA),
		NumKeys:        getEnvIntOrDefault("AUTH_NUM_KEYS", 0), // 0 lets the key manager pick
		KeyStorageMode: getEnvOrDefault("AUTH_KEY_STORAGE_MODE", "ephemeral"),
		KeyGracePeriod: getEnvDurationOrDefault("AUTH_KEY_GRACE_PERIOD", 30*24*time.Hour),
		MasterKeyPath:  os.Getenv("AUTH_MASTER_KEY_PATH"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		AccessTTL:      getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:     getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		SessionTransport: getEnvOrDefault("AUTH_SESSION_TRANSPORT", "both"),
		CookieSecure:     getEnvBoolOrDefault("AUTH_COOKIE_SECURE", env != "dev"),
		ClientURL:        os.Getenv("CLIENT_URL"),

		DBDriver:     strings.ToLower(getEnvOrDefault("DB_DRIVER", "sqlite")),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "fastlink.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		OTPBackend:     strings.ToLower(getEnvOrDefault("OTP_BACKEND", "sql")),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvIntOrDefault("REDIS_DB", 0),
		OTPTTL:         getEnvDurationOrDefault("OTP_TTL", 10*time.Minute),
		OTPMaxAttempts: getEnvIntOrDefault("OTP_MAX_ATTEMPTS", 5),

		Notifier:     strings.ToLower(getEnvOrDefault("NOTIFIER", notifier)),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		Env:                  env,
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUsername
	}

	return cfg
}

// Validate rejects combinations that cannot start.
func (c Config) Validate() error {
	var errs []error

	switch c.Algorithm {
	case jwtx.AlgorithmEdDSA, jwtx.AlgorithmES256:
	default:
		errs = append(errs, fmt.Errorf("AUTH_ALGORITHM must be EdDSA or ES256, got %q", c.Algorithm))
	}
	switch c.KeyStorageMode {
	case "ephemeral", "persistent":
	default:
		errs = append(errs, fmt.Errorf("AUTH_KEY_STORAGE_MODE must be ephemeral or persistent, got %q", c.KeyStorageMode))
	}
	if c.KeyStorageMode == "persistent" && c.KeyGracePeriod < c.RefreshTTL {
		errs = append(errs, errors.New("AUTH_KEY_GRACE_PERIOD must cover AUTH_REFRESH_TTL"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= c.AccessTTL {
		errs = append(errs, errors.New("AUTH_REFRESH_TTL must be longer than a positive AUTH_ACCESS_TTL"))
	}

	switch c.SessionTransport {
	case "bearer", "cookie", "both":
	default:
		errs = append(errs, fmt.Errorf("AUTH_SESSION_TRANSPORT must be bearer, cookie or both, got %q", c.SessionTransport))
	}

	switch c.DBDriver {
	case "sqlite":
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_FILE is required for sqlite"))
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver))
	}

	switch c.OTPBackend {
	case "sql":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis OTP backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("OTP_BACKEND must be sql or redis, got %q", c.OTPBackend))
	}
	if c.OTPTTL <= 0 || c.OTPMaxAttempts <= 0 {
		errs = append(errs, errors.New("OTP_TTL and OTP_MAX_ATTEMPTS must be positive"))
	}

	switch c.Notifier {
	case "log":
		// The log notifier writes live codes and delivers nothing.
		if !isLocalEnv(c.Env) {
			errs = append(errs, fmt.Errorf("NOTIFIER=log is only allowed when ENV is dev or test, got ENV=%q", c.Env))
		}
	case "smtp":
		if c.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for the smtp notifier"))
		}
		if c.SMTPFrom == "" {
			errs = append(errs, errors.New("SMTP_FROM or SMTP_USERNAME is required for the smtp notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFIER must be log or smtp, got %q", c.Notifier))
	}

	return errors.Join(errs...)
}

func isLocalEnv(env string) bool {
	return env == "dev" || env == "test"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
