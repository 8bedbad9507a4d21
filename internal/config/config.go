// Package config provides configuration loading and validation for the API
// server and the sweep worker. It uses koanf to merge environment variables
// with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the ranking service.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis; the result cache is disabled when empty.
	RedisURL string `koanf:"redis_url"`

	// CalibrationPath points to an optional JSON file overriding the
	// default ranking weights.
	CalibrationPath string `koanf:"calibration_path"`

	// Query budgets
	UserQueryTimeout  time.Duration `koanf:"user_query_timeout"`
	AdminQueryTimeout time.Duration `koanf:"admin_query_timeout"`

	// Cache TTLs
	SearchCacheTTL time.Duration `koanf:"search_cache_ttl"`

	// Trending sweep
	SweepInterval  time.Duration `koanf:"sweep_interval"`
	SweepBatchSize int           `koanf:"sweep_batch_size"`
	SweepMaxPosts  int           `koanf:"sweep_max_posts"`
	SweepRate      int           `koanf:"sweep_rate"`

	// Feature flags
	PersonalizationEnabled bool `koanf:"personalization_enabled"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrInvalidPort        = errors.New("PORT must be a valid integer")
	ErrInvalidTimeout     = errors.New("query timeouts must be positive durations")
	ErrInvalidSweep       = errors.New("sweep batch size, max posts and rate must be positive")
)

// Default values for non-secret configuration.
const (
	DefaultPort              = 8080
	DefaultEnv               = "development"
	DefaultUserQueryTimeout  = 5 * time.Second
	DefaultAdminQueryTimeout = 3 * time.Second
	DefaultSearchCacheTTL    = 120 * time.Second
	DefaultSweepInterval     = 10 * time.Minute
	DefaultSweepBatchSize    = 500
	DefaultSweepMaxPosts     = 10000
	DefaultSweepRate         = 200
)

// Load reads configuration from environment variables and an optional config
// file. Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if
// valid). If a config file path is provided and the file cannot be loaded,
// an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefaultMulti([]string{"ECHOFEED_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	userTimeout, err := getEnvDurationOrDefault("USER_QUERY_TIMEOUT", k.Duration("user_query_timeout"), DefaultUserQueryTimeout)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	adminTimeout, err := getEnvDurationOrDefault("ADMIN_QUERY_TIMEOUT", k.Duration("admin_query_timeout"), DefaultAdminQueryTimeout)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	searchTTL, err := getEnvDurationOrDefault("SEARCH_CACHE_TTL", k.Duration("search_cache_ttl"), DefaultSearchCacheTTL)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	sweepInterval, err := getEnvDurationOrDefault("SWEEP_INTERVAL", k.Duration("sweep_interval"), DefaultSweepInterval)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	sweepBatch, err := getEnvIntOrDefaultMulti([]string{"SWEEP_BATCH_SIZE"}, k.Int("sweep_batch_size"), DefaultSweepBatchSize)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	sweepMax, err := getEnvIntOrDefaultMulti([]string{"SWEEP_MAX_POSTS"}, k.Int("sweep_max_posts"), DefaultSweepMaxPosts)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	sweepRate, err := getEnvIntOrDefaultMulti([]string{"SWEEP_RATE"}, k.Int("sweep_rate"), DefaultSweepRate)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	personalization := true
	if k.Exists("personalization_enabled") {
		personalization = k.Bool("personalization_enabled")
	}
	if val := os.Getenv("PERSONALIZATION_ENABLED"); val != "" {
		// Env var takes precedence over file config
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			personalization = true
		case "false", "0", "no", "off":
			personalization = false
		}
	}

	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefaultMulti([]string{"ECHOFEED_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:            getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:               getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		CalibrationPath:        getEnvOrKoanf("CALIBRATION_PATH", k, "calibration_path"),
		UserQueryTimeout:       userTimeout,
		AdminQueryTimeout:      adminTimeout,
		SearchCacheTTL:         searchTTL,
		SweepInterval:          sweepInterval,
		SweepBatchSize:         sweepBatch,
		SweepMaxPosts:          sweepMax,
		SweepRate:              sweepRate,
		PersonalizationEnabled: personalization,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or
// default. Returns an error if an environment variable is set but cannot be
// parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault returns the environment variable as a duration if
// set, otherwise the koanf value, or default. Returns an error if the
// environment variable is set but cannot be parsed.
func getEnvDurationOrDefault(envKey string, koanfVal time.Duration, defaultVal time.Duration) (time.Duration, error) {
	if val := os.Getenv(envKey); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid duration: %w", envKey, err)
		}
		return d, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.UserQueryTimeout <= 0 || c.AdminQueryTimeout <= 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	if c.SweepBatchSize <= 0 || c.SweepMaxPosts <= 0 || c.SweepRate <= 0 {
		errs = append(errs, ErrInvalidSweep)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// Connection URLs are masked to prevent accidental credential exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                    fmt.Sprintf("%d", c.Port),
		"env":                     c.Env,
		"database_url":            maskURL(c.DatabaseURL),
		"redis_url":               maskURL(c.RedisURL),
		"calibration_path":        c.CalibrationPath,
		"user_query_timeout":      c.UserQueryTimeout.String(),
		"admin_query_timeout":     c.AdminQueryTimeout.String(),
		"search_cache_ttl":        c.SearchCacheTTL.String(),
		"sweep_interval":          c.SweepInterval.String(),
		"sweep_batch_size":        fmt.Sprintf("%d", c.SweepBatchSize),
		"sweep_max_posts":         fmt.Sprintf("%d", c.SweepMaxPosts),
		"sweep_rate":              fmt.Sprintf("%d", c.SweepRate),
		"personalization_enabled": fmt.Sprintf("%t", c.PersonalizationEnabled),
	}
}

// maskURL masks the password in a connection URL.
// Supports postgres://, postgresql:// and redis:// schemes.
func maskURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return "****"
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
