package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Database  DatabaseConfig
	Store     StoreConfig
	JWT       JWTConfig
	App       AppConfig
	Timeclock TimeclockConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// StoreConfig selects the backing store.
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
	SSEExpiration    time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	CORSOrigins []string
}

// TimeclockConfig tunes the engine. Rules themselves live in the settings table.
type TimeclockConfig struct {
	DefaultTimezone       string
	AlertMarginMinutes    int
	MissedPunchStaleAfter time.Duration
	MissedPunchInterval   time.Duration
	SettingsCacheTTL      time.Duration
	StoreTimeout          time.Duration
	SSEBuffer             int
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// FromEnv builds the configuration from environment variables without validating it.
func FromEnv() (*Config, error) {
	config := &Config{}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxConns, err := getEnvInt("DB_MAX_CONNS", 25)
	if err != nil {
		return nil, err
	}
	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "timeclock"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),
	}

	config.Store = StoreConfig{
		Driver:     strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		SQLitePath: getEnv("SQLITE_PATH", "data/timeclock.db"),
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	// JWT configuration
	accessExp, err := getEnvDuration("JWT_ACCESS_EXPIRATION_TIME", time.Hour)
	if err != nil {
		return nil, err
	}
	sseExp, err := getEnvDuration("JWT_SSE_EXPIRATION_TIME", time.Minute)
	if err != nil {
		return nil, err
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: accessExp,
		SSEExpiration:    sseExp,
	}

	// Timeclock configuration
	margin, err := getEnvInt("TIMECLOCK_ALERT_MARGIN_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	staleAfter, err := getEnvDuration("TIMECLOCK_MISSED_PUNCH_STALE_AFTER", 16*time.Hour)
	if err != nil {
		return nil, err
	}
	scanInterval, err := getEnvDuration("TIMECLOCK_MISSED_PUNCH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getEnvDuration("TIMECLOCK_SETTINGS_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, err
	}
	storeTimeout, err := getEnvDuration("TIMECLOCK_STORE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	sseBuffer, err := getEnvInt("TIMECLOCK_SSE_BUFFER", 16)
	if err != nil {
		return nil, err
	}

	config.Timeclock = TimeclockConfig{
		DefaultTimezone:       getEnv("TIMECLOCK_DEFAULT_TIMEZONE", "UTC"),
		AlertMarginMinutes:    margin,
		MissedPunchStaleAfter: staleAfter,
		MissedPunchInterval:   scanInterval,
		SettingsCacheTTL:      cacheTTL,
		StoreTimeout:          storeTimeout,
		SSEBuffer:             sseBuffer,
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Store.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if !validator.IsValidTimezone(c.Timeclock.DefaultTimezone) {
		return fmt.Errorf("TIMECLOCK_DEFAULT_TIMEZONE %q is not a valid IANA timezone", c.Timeclock.DefaultTimezone)
	}
	if c.Timeclock.AlertMarginMinutes < 0 {
		return fmt.Errorf("TIMECLOCK_ALERT_MARGIN_MINUTES must not be negative")
	}
	if c.Timeclock.MissedPunchStaleAfter <= 0 || c.Timeclock.MissedPunchInterval <= 0 {
		return fmt.Errorf("missed punch durations must be positive")
	}
	if c.Timeclock.StoreTimeout <= 0 {
		return fmt.Errorf("TIMECLOCK_STORE_TIMEOUT must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}
