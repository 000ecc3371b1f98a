package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/financeflow/internal/calculator"
	"github.com/mmynk/financeflow/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENV", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, calculator.DefaultBalanceTolerance, cfg.Split.BalanceTolerance)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
port: "9090"
db_path: /tmp/ff.db
token_ttl: 2h
allowed_origins: [https://app.example.com]
split:
  balance_tolerance: 0.01
ledger:
  settled_statuses: [Completed, Rejected, Approved]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("RATE_LIMIT_BURST", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port, "env overrides the file")
	assert.Equal(t, "/tmp/ff.db", cfg.DBPath)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, calculator.StrictBalanceTolerance, cfg.Split.BalanceTolerance)
	assert.Equal(t, []models.Status{models.StatusCompleted, models.StatusRejected, models.StatusApproved}, cfg.Ledger.SettledStatuses)

	history := []models.Entry{&models.MoneyGiven{
		Base:     models.Base{CreatorID: "me", Amount: 10, Status: models.StatusApproved},
		FriendID: "bob",
	}}
	assert.Equal(t, 0.0, cfg.Aggregator().NetBalance(history, "me", "bob"), "approved counts as settled")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.JWTSecret = "short" }},
		{"dev secret in production", func(c *Config) { c.Env = "production" }},
		{"negative tolerance", func(c *Config) { c.Split.BalanceTolerance = -1 }},
		{"unknown status", func(c *Config) { c.Ledger.SettledStatuses = []models.Status{"Done"} }},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestInvalidEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TOKEN_TTL", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "TOKEN_TTL")
}
