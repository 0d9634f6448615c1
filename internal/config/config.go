package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pinggolf/m3-scheduling-core/internal/scheduling"
)

// Config holds all application configuration
type Config struct {
	// Application settings
	AppEnv        string
	AppPort       int
	FrontendURL   string
	RunMigrations bool

	// Database settings
	DatabaseURL                string
	DatabaseMaxConnections     int
	DatabaseMaxIdleConnections int
	DatabaseConnectionLifetime time.Duration

	// TRN environment OAuth (authorization-code flow, guards /api/scheduling/* for the TRN tenant)
	TRNClientID      string
	TRNClientSecret  string
	TRNAuthEndpoint  string
	TRNTokenEndpoint string

	// PRD environment OAuth
	PRDClientID      string
	PRDClientSecret  string
	PRDAuthEndpoint  string
	PRDTokenEndpoint string

	// OAuth settings
	OAuthRedirectURI   string
	SessionSecret      string
	SessionDuration    time.Duration
	TokenRefreshBuffer time.Duration

	// CORS settings
	CORSAllowedOrigins   string
	CORSAllowCredentials bool

	// Logging
	LogLevel  string
	LogFormat string

	// NATS settings
	NATSURL string

	// Scheduling core settings
	Scheduling SchedulingConfig
}

// SchedulingConfig holds the scheduling-core stage toggles and tunables.
type SchedulingConfig struct {
	MergeEnabled      bool
	SplitEnabled      bool
	CorrectionEnabled bool
	ParallelEnabled   bool

	ShiftClampMaxHours       float64
	SetupMinutesDefault      int
	ChangeoverMinutesDefault int
	SpeedToleranceMinutes    float64

	Deadline time.Duration
}

// ToCoreConfig converts the loaded settings into the scheduling core's own
// Config type, preserving its default special-brand set.
func (s SchedulingConfig) ToCoreConfig() scheduling.Config {
	core := scheduling.DefaultConfig()
	core.MergeEnabled = s.MergeEnabled
	core.SplitEnabled = s.SplitEnabled
	core.CorrectionEnabled = s.CorrectionEnabled
	core.ParallelEnabled = s.ParallelEnabled
	core.ShiftClampMaxHours = s.ShiftClampMaxHours
	core.SetupMinutesDefault = s.SetupMinutesDefault
	core.ChangeoverMinutesDefault = s.ChangeoverMinutesDefault
	core.SpeedToleranceMinutes = s.SpeedToleranceMinutes
	core.Deadline = s.Deadline
	return core
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		AppPort:     getEnvAsInt("APP_PORT", 8080),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		DatabaseURL:                getEnv("DATABASE_URL", ""),
		DatabaseMaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 25),
		DatabaseMaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
		DatabaseConnectionLifetime: getEnvAsDuration("DATABASE_CONNECTION_LIFETIME", 5*time.Minute),

		TRNClientID:      getEnv("TRN_CLIENT_ID", ""),
		TRNClientSecret:  getEnv("TRN_CLIENT_SECRET", ""),
		TRNAuthEndpoint:  getEnv("TRN_AUTH_ENDPOINT", ""),
		TRNTokenEndpoint: getEnv("TRN_TOKEN_ENDPOINT", ""),

		PRDClientID:      getEnv("PRD_CLIENT_ID", ""),
		PRDClientSecret:  getEnv("PRD_CLIENT_SECRET", ""),
		PRDAuthEndpoint:  getEnv("PRD_AUTH_ENDPOINT", ""),
		PRDTokenEndpoint: getEnv("PRD_TOKEN_ENDPOINT", ""),

		OAuthRedirectURI:   getEnv("OAUTH_REDIRECT_URI", "http://localhost:8080/api/auth/callback"),
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionDuration:    getEnvAsDuration("SESSION_DURATION", 24*time.Hour),
		TokenRefreshBuffer: getEnvAsDuration("TOKEN_REFRESH_BUFFER", 5*time.Minute),

		CORSAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		CORSAllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		NATSURL: getEnv("NATS_URL", "nats://localhost:4222"),

		RunMigrations: getEnvAsBool("RUN_MIGRATIONS", false),

		Scheduling: SchedulingConfig{
			MergeEnabled:             getEnvAsBool("SCHEDULING_MERGE_ENABLED", true),
			SplitEnabled:             getEnvAsBool("SCHEDULING_SPLIT_ENABLED", true),
			CorrectionEnabled:        getEnvAsBool("SCHEDULING_CORRECTION_ENABLED", true),
			ParallelEnabled:          getEnvAsBool("SCHEDULING_PARALLEL_ENABLED", true),
			ShiftClampMaxHours:       getEnvAsFloat("SCHEDULING_SHIFT_CLAMP_MAX_HOURS", 24),
			SetupMinutesDefault:      getEnvAsInt("SCHEDULING_SETUP_MINUTES_DEFAULT", 30),
			ChangeoverMinutesDefault: getEnvAsInt("SCHEDULING_CHANGEOVER_MINUTES_DEFAULT", 15),
			SpeedToleranceMinutes:    getEnvAsFloat("SCHEDULING_SPEED_TOLERANCE_MINUTES", 30),
			Deadline:                 getEnvAsDuration("SCHEDULING_DEADLINE", time.Hour),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.TRNClientID == "" || c.TRNClientSecret == "" {
		return fmt.Errorf("TRN OAuth credentials are required")
	}
	if c.PRDClientID == "" || c.PRDClientSecret == "" {
		return fmt.Errorf("PRD OAuth credentials are required")
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
