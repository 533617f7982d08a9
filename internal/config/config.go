package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	SLA          SLAConfig
	Query        QueryConfig
	Presence     PresenceConfig
	Hub          HubConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	DialTimeoutSec int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	SeedAgent             SeedAgentConfig
}

// SeedAgentConfig describes an agent created at startup when missing.
type SeedAgentConfig struct {
	Name     string
	Email    string
	Password string
}

// Enabled reports whether a seed agent was configured.
func (s SeedAgentConfig) Enabled() bool {
	return s.Email != "" && s.Password != ""
}

// SLAConfig holds the due-date offsets applied per priority on creation.
type SLAConfig struct {
	CriticalHours int
	HighHours     int
	MediumDays    int
	LowDays       int
}

// QueryConfig bounds list and search parameters.
type QueryConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	MaxSearchLength int
}

// PresenceConfig tunes agent online tracking.
type PresenceConfig struct {
	OnlineThresholdMinutes int
}

// HubConfig tunes the realtime hub.
type HubConfig struct {
	MessagesPerSecond float64
	MessageBurst      int
	WriteTimeoutSec   int
}

// NotificationConfig controls cross-instance delivery of ticket notifications.
type NotificationConfig struct {
	RelayEnabled bool
	RelayChannel string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	msgRate, err := strconv.ParseFloat(getEnv("HUB_MESSAGES_PER_SECOND", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid HUB_MESSAGES_PER_SECOND: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-hub"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			DialTimeoutSec: getEnvAsInt("REDIS_DIAL_TIMEOUT_SECONDS", 5),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			SeedAgent: SeedAgentConfig{
				Name:     getEnv("AUTH_SEED_AGENT_NAME", "Support Agent"),
				Email:    os.Getenv("AUTH_SEED_AGENT_EMAIL"),
				Password: os.Getenv("AUTH_SEED_AGENT_PASSWORD"),
			},
		},
		SLA: SLAConfig{
			CriticalHours: getEnvAsInt("SLA_CRITICAL_HOURS", 4),
			HighHours:     getEnvAsInt("SLA_HIGH_HOURS", 8),
			MediumDays:    getEnvAsInt("SLA_MEDIUM_DAYS", 2),
			LowDays:       getEnvAsInt("SLA_LOW_DAYS", 5),
		},
		Query: QueryConfig{
			DefaultPageSize: getEnvAsInt("QUERY_DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:     getEnvAsInt("QUERY_MAX_PAGE_SIZE", 100),
			MaxSearchLength: getEnvAsInt("QUERY_MAX_SEARCH_LENGTH", 500),
		},
		Presence: PresenceConfig{
			OnlineThresholdMinutes: getEnvAsInt("AGENT_ONLINE_THRESHOLD_MINUTES", 5),
		},
		Hub: HubConfig{
			MessagesPerSecond: msgRate,
			MessageBurst:      getEnvAsInt("HUB_MESSAGE_BURST", 10),
			WriteTimeoutSec:   getEnvAsInt("HUB_WRITE_TIMEOUT_SECONDS", 10),
		},
		Notification: NotificationConfig{
			RelayEnabled: getEnvAsBool("NOTIFY_RELAY_ENABLED", false),
			RelayChannel: getEnv("NOTIFY_RELAY_CHANNEL", "support-hub:team-events"),
		},
	}

	return cfg, nil
}

// Defaults returns the configuration used when no environment is set.
// Tests build services from it.
func Defaults() Config {
	return Config{
		SLA:      SLAConfig{CriticalHours: 4, HighHours: 8, MediumDays: 2, LowDays: 5},
		Query:    QueryConfig{DefaultPageSize: 20, MaxPageSize: 100, MaxSearchLength: 500},
		Presence: PresenceConfig{OnlineThresholdMinutes: 5},
		Hub:      HubConfig{MessagesPerSecond: 5, MessageBurst: 10, WriteTimeoutSec: 10},
		Auth:     AuthConfig{JWTSecret: "dev-secret", AccessTokenTTLMinutes: 60, BcryptCost: 12},
	}
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// OnlineThreshold returns how long an agent may stay silent and still count as online.
func (p PresenceConfig) OnlineThreshold() time.Duration {
	return time.Duration(p.OnlineThresholdMinutes) * time.Minute
}

// WriteTimeout returns the per-frame write deadline for hub connections.
func (h HubConfig) WriteTimeout() time.Duration {
	if h.WriteTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(h.WriteTimeoutSec) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
