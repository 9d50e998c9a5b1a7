package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Default().Validate())
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative daily loss", func(c *Config) { c.Risk.DailyLossPct = -0.02 }},
		{"level1 at level2", func(c *Config) { c.Risk.WeeklyLevel1Pct = c.Risk.WeeklyLevel2Pct }},
		{"level1 above level2", func(c *Config) { c.Risk.WeeklyLevel1Pct = 0.08 }},
		{"reduction factor one", func(c *Config) { c.Risk.ReductionFactor = 1.0 }},
		{"zero max trades", func(c *Config) { c.Trading.MaxActiveTrades = 0 }},
		{"stop loss over 100%", func(c *Config) { c.Trading.StopLossPct = 1.5 }},
		{"buffer above threshold", func(c *Config) { c.Trading.BreakevenBufferPct = 0.2 }},
		{"max age below negative close", func(c *Config) { c.Trading.TradeMaxAgeHours = 4 }},
		{"block hours not dividing day", func(c *Config) { c.Cooldown.BlockHours = 5 }},
		{"anchor hour out of range", func(c *Config) { c.Cooldown.AnchorHourUTC = 24 }},
		{"zero reconcile interval", func(c *Config) { c.Monitors.ReconcileInterval = 0 }},
		{"missing journal path", func(c *Config) { c.Journal.DBPath = "" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "riskcore.yaml")

	cfg := Default()
	cfg.Risk.DailyLossPct = 0.03
	cfg.Cooldown.AnchorHourUTC = 3
	cfg.Monitors.GovernorInterval = 30 * time.Second
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 0.03, got.Risk.DailyLossPct)
	assert.Equal(t, 3, got.Cooldown.AnchorHourUTC)
	assert.Equal(t, 30*time.Second, got.Monitors.GovernorInterval)
	// Untouched fields keep defaults.
	assert.Equal(t, 30, got.Trading.MaxActiveTrades)
}

func TestLoadFromFileJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "riskcore.json")

	cfg := Default()
	cfg.Trading.MaxActiveTrades = 5
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Trading.MaxActiveTrades)
}

func TestLoadFromFileInvalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")

	cfg := Default()
	cfg.Risk.WeeklyLevel1Pct = 0.10 // above level2
	require.NoError(t, cfg.SaveToFile(path))

	_, err := LoadFromFile(path)
	assert.ErrorContains(t, err, "weekly_level1_pct")
}
