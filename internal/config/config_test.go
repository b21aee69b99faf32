package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found.
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "takeoff.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.FastModel)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.StandardModel)
	assert.Equal(t, "claude-opus-4-6", cfg.Anthropic.EscalatedModel)
	assert.Equal(t, int64(8192), cfg.Anthropic.MaxTokens)
	assert.InDelta(t, 2.0, cfg.Anthropic.RateLimitRPS, 0.001)
	assert.Equal(t, 120, cfg.Anthropic.TimeoutSecs)

	assert.InDelta(t, 0.70, cfg.Pipeline.EscalationThreshold, 0.001)

	assert.InDelta(t, 15.0, cfg.Pricing.VATPct, 0.001)
	assert.InDelta(t, 20.0, cfg.Pricing.DefaultMarkupPct, 0.001)
	assert.InDelta(t, 5.0, cfg.Pricing.DefaultContingency, 0.001)

	assert.Equal(t, "local", cfg.Ingest.Provider)
	assert.Equal(t, 150, cfg.Ingest.RenderDPI)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/takeoff
pipeline:
  escalation_threshold: 0.85
pricing:
  vat_pct: 14
  rate_book_path: rates.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/takeoff", cfg.Store.DatabaseURL)
	assert.InDelta(t, 0.85, cfg.Pipeline.EscalationThreshold, 0.001)
	assert.InDelta(t, 14.0, cfg.Pricing.VATPct, 0.001)
	assert.Equal(t, "rates.yaml", cfg.Pricing.RateBookPath)

	// Unset keys keep their defaults.
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.StandardModel)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("TAKEOFF_STORE_DRIVER", "postgres")
	t.Setenv("TAKEOFF_ANTHROPIC_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level"})
	require.Error(t, err)
}
