package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	Directory DirectoryConfig
	Session   SessionConfig
	SyncLimit SyncLimitConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// DirectoryConfig points at the external identity directory backend API.
type DirectoryConfig struct {
	APIURL        string
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

// SessionConfig selects how session tokens are verified. JWKSURL wins over
// HMACSecret when both are set.
type SessionConfig struct {
	JWKSURL    string
	Issuer     string
	HMACSecret string
	CookieName string
}

type SyncLimitConfig struct {
	Rate    float64
	Burst   int
	LockTTL time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:           getenv("APP_SERVICE", "creditdesk"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "creditdesk"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Directory: DirectoryConfig{
			APIURL:        strings.TrimRight(getenv("DIRECTORY_API_URL", "https://api.clerk.com"), "/"),
			SecretKey:     strings.TrimSpace(getenv("DIRECTORY_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("DIRECTORY_WEBHOOK_SECRET", "")),
			Timeout:       time.Duration(getenvInt("DIRECTORY_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Session: SessionConfig{
			JWKSURL:    strings.TrimSpace(getenv("SESSION_JWKS_URL", "")),
			Issuer:     strings.TrimSpace(getenv("SESSION_ISSUER", "")),
			HMACSecret: strings.TrimSpace(getenv("SESSION_HMAC_SECRET", "")),
			CookieName: getenv("SESSION_COOKIE_NAME", "__session"),
		},
		SyncLimit: SyncLimitConfig{
			Rate:    getenvFloat("SYNC_RATE_PER_SECOND", 0.05),
			Burst:   getenvInt("SYNC_BURST", 3),
			LockTTL: time.Duration(getenvInt("SYNC_LOCK_TTL_SECONDS", 300)) * time.Second,
		},
	}
}

// IsProduction turns off SQL statement logging.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
