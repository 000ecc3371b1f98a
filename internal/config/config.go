// Package config loads server configuration from an optional YAML file and
// environment variables. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/financeflow/internal/calculator"
	"github.com/mmynk/financeflow/internal/models"
)

// devJWTSecret is only accepted outside production.
const devJWTSecret = "financeflow-development-secret-do-not-use"

// Config holds all configuration for the server.
type Config struct {
	// Server configuration
	Port       string `yaml:"port"`
	Env        string `yaml:"env"`
	StaticPath string `yaml:"static_path"`

	// Database configuration
	DBPath string `yaml:"db_path"`

	// JWT configuration
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	// Redis configuration, used by the session store of CLI clients.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	// HTTP surface
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`

	Split  SplitConfig  `yaml:"split"`
	Ledger LedgerConfig `yaml:"ledger"`
}

// SplitConfig tunes the share allocator.
type SplitConfig struct {
	// BalanceTolerance is how far shares may drift from the total.
	// Zero selects calculator.DefaultBalanceTolerance.
	BalanceTolerance float64 `yaml:"balance_tolerance"`
}

// LedgerConfig tunes balance aggregation.
type LedgerConfig struct {
	// SettledStatuses are the entry statuses that no longer count towards a
	// balance. Empty selects calculator.DefaultSettledStatuses.
	SettledStatuses []models.Status `yaml:"settled_statuses"`
}

// Default returns the development configuration.
func Default() *Config {
	return &Config{
		Port:           "8080",
		Env:            "development",
		StaticPath:     "./static",
		DBPath:         "./data/financeflow.db",
		JWTSecret:      devJWTSecret,
		TokenTTL:       24 * time.Hour,
		RedisAddr:      "localhost:6379",
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		Split:          SplitConfig{BalanceTolerance: calculator.DefaultBalanceTolerance},
		Ledger:         LedgerConfig{SettledStatuses: calculator.DefaultSettledStatuses},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if set) and environment variables, then validates it.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Env = getEnv("ENV", c.Env)
	c.StaticPath = getEnv("STATIC_PATH", c.StaticPath)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("SETTLED_STATUSES"); v != "" {
		c.Ledger.SettledStatuses = nil
		for _, s := range splitList(v) {
			c.Ledger.SettledStatuses = append(c.Ledger.SettledStatuses, models.Status(s))
		}
	}

	var err error
	if c.TokenTTL, err = getEnvAsDuration("TOKEN_TTL", c.TokenTTL); err != nil {
		return err
	}
	if c.RateLimitRPS, err = getEnvAsFloat("RATE_LIMIT_RPS", c.RateLimitRPS); err != nil {
		return err
	}
	if c.RateLimitBurst, err = getEnvAsInt("RATE_LIMIT_BURST", c.RateLimitBurst); err != nil {
		return err
	}
	if c.Split.BalanceTolerance, err = getEnvAsFloat("SPLIT_BALANCE_TOLERANCE", c.Split.BalanceTolerance); err != nil {
		return err
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters long")
	}
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.Split.BalanceTolerance < 0 {
		return errors.New("split balance tolerance cannot be negative")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return errors.New("rate limits cannot be negative")
	}
	for _, s := range c.Ledger.SettledStatuses {
		switch s {
		case models.StatusPending, models.StatusApproved, models.StatusRejected,
			models.StatusCompleted, models.StatusPaid:
		default:
			return fmt.Errorf("unknown settled status %q", s)
		}
	}
	return nil
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Aggregator builds the balance aggregator for the configured settled statuses.
func (c *Config) Aggregator() *calculator.Aggregator {
	if len(c.Ledger.SettledStatuses) == 0 {
		return calculator.NewAggregator()
	}
	return calculator.NewAggregator(calculator.WithSettledStatuses(c.Ledger.SettledStatuses...))
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
