package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName       string
	AppVersion    string
	Environment   string
	HTTPAddr      string
	AuthJWTSecret string
	AuthJWTIssuer string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	MenuPolicyPath string

	// SnowflakeNode is the ID generator node (0-1023); negative selects the binary default.
	SnowflakeNode int64

	RateLimit RateLimitConfig
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// VoteRate is the sustained number of votes a single user may cast per second.
	VoteRate  float64
	VoteBurst int
	// IngestLockTTLSeconds bounds how long a month reconcile holds its lock.
	IngestLockTTLSeconds int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "dormmenu"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		AuthJWTSecret:     strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthJWTIssuer:     strings.TrimSpace(getenv("AUTH_JWT_ISSUER", "")),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "dormmenu"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "dormmenu.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		MenuPolicyPath:    strings.TrimSpace(getenv("MENU_POLICY_PATH", "")),
		SnowflakeNode:     int64(getenvInt("SNOWFLAKE_NODE", -1)),
		RateLimit: RateLimitConfig{
			Enabled:              getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:            getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:        getenv("REDIS_PASSWORD", ""),
			RedisDB:              getenvInt("REDIS_DB", 0),
			VoteRate:             getenvFloat("RATE_LIMIT_VOTE_RATE", 2),
			VoteBurst:            getenvInt("RATE_LIMIT_VOTE_BURST", 10),
			IngestLockTTLSeconds: getenvInt("INGEST_LOCK_TTL_SECONDS", 120),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// NodeID returns the configured snowflake node, or def when none is set.
// Processes sharing a database must not share a node.
func (c Config) NodeID(def int64) int64 {
	if c.SnowflakeNode >= 0 {
		return c.SnowflakeNode
	}
	return def
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
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
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
