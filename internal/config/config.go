// Package config loads runtime settings from the environment, an optional
// .env file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when a setting is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Setting keys. Each is also the environment variable name.
const (
	KeyPostgresDSN           = "POSTGRES_DSN"
	KeyClickhouseDSN         = "CLICKHOUSE_DSN"
	KeyRedisAddr             = "REDIS_ADDR"
	KeyRedisDB               = "REDIS_DB"
	KeyQueueKey              = "QUEUE_KEY"
	KeyQueueCapacity         = "QUEUE_CAPACITY"
	KeyQueueTTL              = "QUEUE_TTL"
	KeyLogLevel              = "LOG_LEVEL"
	KeyLogJSON               = "LOG_JSON"
	KeyHTTPAddr              = "HTTP_ADDR"
	KeyCheckInterval         = "CHECK_INTERVAL"
	KeyWindowDays            = "WINDOW_DAYS"
	KeyAutoRepair            = "AUTO_REPAIR"
	KeyRepairWritesPerSecond = "REPAIR_WRITES_PER_SECOND"
	KeyUseMemory             = "USE_MEMORY"
)

// Config holds all application configuration.
type Config struct {
	PostgresDSN   string
	ClickhouseDSN string
	RedisAddr     string
	RedisDB       int

	QueueKey      string
	QueueCapacity int
	QueueTTL      time.Duration

	LogLevel string
	LogJSON  bool

	HTTPAddr      string
	CheckInterval time.Duration
	WindowDays    int

	AutoRepair            bool
	RepairWritesPerSecond float64 // 0 disables throttling

	// UseMemory selects in-memory stores and queue instead of the databases.
	UseMemory bool
}

// New returns a viper instance with defaults registered and environment
// lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPostgresDSN, "")
	v.SetDefault(KeyClickhouseDSN, "")
	v.SetDefault(KeyRedisAddr, "")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyQueueKey, "forecast:update_queue")
	v.SetDefault(KeyQueueCapacity, 1000)
	v.SetDefault(KeyQueueTTL, 24*time.Hour)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogJSON, false)
	v.SetDefault(KeyHTTPAddr, ":9090")
	v.SetDefault(KeyCheckInterval, time.Hour)
	v.SetDefault(KeyWindowDays, 30)
	v.SetDefault(KeyAutoRepair, false)
	v.SetDefault(KeyRepairWritesPerSecond, 50.0)
	v.SetDefault(KeyUseMemory, false)
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads variables from the given files (default ".env") into the
// process environment. Missing files are not an error; variables already
// set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// BindFlags makes the named flags override their settings when set.
// bindings maps setting key to flag name.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("bind %s: flag --%s not defined", key, name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads every setting from v and validates ranges.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		PostgresDSN:           v.GetString(KeyPostgresDSN),
		ClickhouseDSN:         v.GetString(KeyClickhouseDSN),
		RedisAddr:             v.GetString(KeyRedisAddr),
		RedisDB:               v.GetInt(KeyRedisDB),
		QueueKey:              v.GetString(KeyQueueKey),
		QueueCapacity:         v.GetInt(KeyQueueCapacity),
		QueueTTL:              v.GetDuration(KeyQueueTTL),
		LogLevel:              v.GetString(KeyLogLevel),
		LogJSON:               v.GetBool(KeyLogJSON),
		HTTPAddr:              v.GetString(KeyHTTPAddr),
		CheckInterval:         v.GetDuration(KeyCheckInterval),
		WindowDays:            v.GetInt(KeyWindowDays),
		AutoRepair:            v.GetBool(KeyAutoRepair),
		RepairWritesPerSecond: v.GetFloat64(KeyRepairWritesPerSecond),
		UseMemory:             v.GetBool(KeyUseMemory),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks setting ranges.
func (c *Config) Validate() error {
	switch {
	case c.QueueCapacity <= 0:
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, KeyQueueCapacity, c.QueueCapacity)
	case c.QueueTTL < 0:
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, KeyQueueTTL)
	case c.CheckInterval <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, KeyCheckInterval)
	case c.RepairWritesPerSecond < 0:
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, KeyRepairWritesPerSecond)
	case c.QueueKey == "":
		return fmt.Errorf("%w: %s must be set", ErrInvalidConfig, KeyQueueKey)
	}
	return nil
}

// HasDatabases reports whether both database DSNs are configured.
func (c *Config) HasDatabases() bool {
	return c.PostgresDSN != "" && c.ClickhouseDSN != ""
}
