package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Scheduler  SchedulerConfig
	Detection  DetectionConfig
	Forecast   ForecastConfig
	Dispatcher DispatcherConfig
	Logging    LoggingConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Environment     string
	AllowedOrigins  []string
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// AuthConfig contains token verification configuration. Tokens are issued
// by the external identity service; this core only verifies them.
type AuthConfig struct {
	JWTSecret string
}

// SchedulerConfig contains sync cycle scheduling configuration
type SchedulerConfig struct {
	Enabled       bool
	CronSpec      string
	CycleDeadline time.Duration
	LeaseTTL      time.Duration
}

// DetectionConfig contains anomaly detection configuration
type DetectionConfig struct {
	WindowDays       int
	ZScoreCutoff     float64
	MovingAvgPercent float64
	MinDataPoints    int
}

// ForecastConfig contains forecasting configuration
type ForecastConfig struct {
	HorizonDays    int
	MinHistoryDays int
	AccuracyWindow int
}

// DispatcherConfig contains webhook delivery configuration
type DispatcherConfig struct {
	Timeout         time.Duration
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	FailureCeiling  int
	ProcessInterval time.Duration
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "costwatch"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./costwatch.db"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:       getEnvAsBool("SCHEDULER_ENABLED", true),
			CronSpec:      getEnv("SCHEDULER_CRON", "0 * * * *"),
			CycleDeadline: getEnvAsDuration("SCHEDULER_CYCLE_DEADLINE", 10*time.Minute),
			LeaseTTL:      getEnvAsDuration("SCHEDULER_LEASE_TTL", 15*time.Minute),
		},
		Detection: DetectionConfig{
			WindowDays:       getEnvAsInt("DETECTION_WINDOW_DAYS", 30),
			ZScoreCutoff:     getEnvAsFloat("DETECTION_ZSCORE_CUTOFF", 3.0),
			MovingAvgPercent: getEnvAsFloat("DETECTION_MOVING_AVG_PERCENT", 50.0),
			MinDataPoints:    getEnvAsInt("DETECTION_MIN_DATA_POINTS", 7),
		},
		Forecast: ForecastConfig{
			HorizonDays:    getEnvAsInt("FORECAST_HORIZON_DAYS", 30),
			MinHistoryDays: getEnvAsInt("FORECAST_MIN_HISTORY_DAYS", 14),
			AccuracyWindow: getEnvAsInt("FORECAST_ACCURACY_WINDOW", 30),
		},
		Dispatcher: DispatcherConfig{
			Timeout:         getEnvAsDuration("DISPATCH_TIMEOUT", 30*time.Second),
			MaxAttempts:     getEnvAsInt("DISPATCH_MAX_ATTEMPTS", 5),
			InitialBackoff:  getEnvAsDuration("DISPATCH_INITIAL_BACKOFF", 30*time.Second),
			MaxBackoff:      getEnvAsDuration("DISPATCH_MAX_BACKOFF", 30*time.Minute),
			FailureCeiling:  getEnvAsInt("DISPATCH_FAILURE_CEILING", 10),
			ProcessInterval: getEnvAsDuration("DISPATCH_PROCESS_INTERVAL", time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Detection.ZScoreCutoff <= 0 {
		return fmt.Errorf("z-score cutoff must be positive: %f", c.Detection.ZScoreCutoff)
	}

	if c.Dispatcher.MaxAttempts < 1 {
		return fmt.Errorf("dispatcher max attempts must be at least 1: %d", c.Dispatcher.MaxAttempts)
	}

	if c.Scheduler.LeaseTTL < c.Scheduler.CycleDeadline {
		return fmt.Errorf("lease TTL %s must not be shorter than the cycle deadline %s",
			c.Scheduler.LeaseTTL, c.Scheduler.CycleDeadline)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
