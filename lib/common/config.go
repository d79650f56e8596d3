package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DayInHours = 24
	HourInMs   = 3600000

	// DefaultMaxAge is the maximum age of a persisted blob (7 days)
	DefaultMaxAge = 7 * DayInHours * HourInMs * time.Millisecond
	// DefaultThrottle is the persistence write window
	DefaultThrottle = 5000 * time.Millisecond
	// DefaultSympathyProbability is the chance of a cold start in development mode
	DefaultSympathyProbability = 0.25
	// DefaultLoadTimeout bounds the initial read of persisted state
	DefaultLoadTimeout = 10 * time.Second
	// DefaultWriteTimeout bounds a single persistence write
	DefaultWriteTimeout = 10 * time.Second
)

// --------------------------------------------------------------------------
// Backend types
// --------------------------------------------------------------------------

type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendRedis  BackendType = "redis"
	BackendSQLite BackendType = "sqlite"
)

// ParseBackendType converts a flag value into a BackendType
func ParseBackendType(s string) (BackendType, error) {
	switch BackendType(strings.ToLower(strings.TrimSpace(s))) {
	case BackendMemory:
		return BackendMemory, nil
	case BackendRedis:
		return BackendRedis, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("invalid backend %q (expected one of: memory, redis, sqlite)", s)
	}
}

// --------------------------------------------------------------------------
// Persistence configuration struct
// --------------------------------------------------------------------------

// PersistConfig holds every configuration parameter of the persistence layer.
type PersistConfig struct {
	// Feature flags
	PersistRedux    bool
	ForceSympathy   bool
	NoForceSympathy bool

	// SympathyProbability is the chance (0..1) of discarding persisted state
	// on startup in development mode
	SympathyProbability float64

	// Timing
	MaxAge       time.Duration
	Throttle     time.Duration
	LoadTimeout  time.Duration
	WriteTimeout time.Duration

	// Backend settings
	Backend    BackendType
	RedisURL   string
	SQLitePath string
	Serializer string

	// Logging configuration
	LogLevel string
}

// DefaultPersistConfig returns the configuration used when nothing is overridden.
func DefaultPersistConfig() PersistConfig {
	return PersistConfig{
		PersistRedux:        true,
		SympathyProbability: DefaultSympathyProbability,
		MaxAge:              DefaultMaxAge,
		Throttle:            DefaultThrottle,
		LoadTimeout:         DefaultLoadTimeout,
		WriteTimeout:        DefaultWriteTimeout,
		Backend:             BackendMemory,
		Serializer:          "json",
		LogLevel:            "info",
	}
}

// Validate checks the configuration for values that cannot work.
func (c *PersistConfig) Validate() error {
	if c.SympathyProbability < 0 || c.SympathyProbability > 1 {
		return fmt.Errorf("sympathy probability must be between 0 and 1, got %v", c.SympathyProbability)
	}
	if c.MaxAge <= 0 {
		return fmt.Errorf("max age must be positive, got %s", c.MaxAge)
	}
	if c.Throttle <= 0 {
		return fmt.Errorf("throttle window must be positive, got %s", c.Throttle)
	}
	if c.LoadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("load and write timeouts must be positive")
	}
	if c.Backend == BackendRedis && c.RedisURL == "" {
		return fmt.Errorf("redis backend requires a redis url")
	}
	if c.Backend == BackendSQLite && c.SQLitePath == "" {
		return fmt.Errorf("sqlite backend requires a database path")
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *PersistConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Flags")
	addField("Persist Redux", strconv.FormatBool(c.PersistRedux))
	addField("Force Sympathy", strconv.FormatBool(c.ForceSympathy))
	addField("No Force Sympathy", strconv.FormatBool(c.NoForceSympathy))
	addField("Sympathy Probability", strconv.FormatFloat(c.SympathyProbability, 'f', -1, 64))

	addSection("Timing")
	addField("Max Age", c.MaxAge.String())
	addField("Throttle", c.Throttle.String())
	addField("Load Timeout", c.LoadTimeout.String())
	addField("Write Timeout", c.WriteTimeout.String())

	addSection("Backend")
	addField("Type", string(c.Backend))
	switch c.Backend {
	case BackendRedis:
		addField("Redis URL", c.RedisURL)
	case BackendSQLite:
		addField("SQLite Path", c.SQLitePath)
	}
	addField("Serializer", c.Serializer)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
