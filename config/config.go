package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration for the risk core. All
// thresholds expressed as fractions are in (0,1); e.g. 0.02 means 2%.
type Config struct {
	Risk     RiskConfig     `json:"risk" yaml:"risk"`
	Trading  TradingConfig  `json:"trading" yaml:"trading"`
	Cooldown CooldownConfig `json:"cooldown" yaml:"cooldown"`
	Monitors MonitorConfig  `json:"monitors" yaml:"monitors"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Notify   NotifyConfig   `json:"notify" yaml:"notify"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// RiskConfig drives the drawdown governor.
type RiskConfig struct {
	DailyLossPct     float64 `json:"daily_loss_pct" yaml:"daily_loss_pct"`
	WeeklyLevel1Pct  float64 `json:"weekly_level1_pct" yaml:"weekly_level1_pct"`
	WeeklyLevel2Pct  float64 `json:"weekly_level2_pct" yaml:"weekly_level2_pct"`
	ReductionFactor  float64 `json:"reduction_factor" yaml:"reduction_factor"`
	RecoveryFraction float64 `json:"recovery_fraction" yaml:"recovery_fraction"`

	// Period reset instants, UTC. The daily reset fires every day at
	// DailyResetHourUTC:00; the weekly reset fires on WeeklyResetWeekday
	// at the same hour.
	DailyResetHourUTC  int          `json:"daily_reset_hour_utc" yaml:"daily_reset_hour_utc"`
	WeeklyResetWeekday time.Weekday `json:"weekly_reset_weekday" yaml:"weekly_reset_weekday"`
}

// TradingConfig covers position lifecycle parameters.
type TradingConfig struct {
	MaxActiveTrades     int     `json:"max_active_trades" yaml:"max_active_trades"`
	BasePositionSizeUSD float64 `json:"base_position_size_usd" yaml:"base_position_size_usd"`

	StopLossPct   float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct float64 `json:"take_profit_pct" yaml:"take_profit_pct"`

	// BreakevenThresholdPct is the unrealized move (as a fraction of
	// entry) at which the stop is tightened to entry; the buffer keeps
	// the new stop slightly in the position's favor to cover round-trip
	// commission.
	BreakevenThresholdPct float64 `json:"breakeven_threshold_pct" yaml:"breakeven_threshold_pct"`
	BreakevenBufferPct    float64 `json:"breakeven_buffer_pct" yaml:"breakeven_buffer_pct"`

	// SmallMovePct bounds the "breakeven exit" classification band.
	SmallMovePct float64 `json:"small_move_pct" yaml:"small_move_pct"`

	NegativePnlCloseHours float64 `json:"negative_pnl_close_hours" yaml:"negative_pnl_close_hours"`
	TradeMaxAgeHours      float64 `json:"trade_max_age_hours" yaml:"trade_max_age_hours"`

	// MarkPriceMaxAge is the staleness bound on the cached mark price;
	// breakeven and PnL checks skip symbols whose price is older.
	MarkPriceMaxAge time.Duration `json:"mark_price_max_age" yaml:"mark_price_max_age"`
}

// CooldownConfig shapes the clock-aligned re-entry blocks.
type CooldownConfig struct {
	BlockHours     int           `json:"block_hours" yaml:"block_hours"`
	AnchorHourUTC  int           `json:"anchor_hour_utc" yaml:"anchor_hour_utc"`
	SweepRetention time.Duration `json:"sweep_retention" yaml:"sweep_retention"`
}

// MonitorConfig holds the poll intervals and the per-cycle network budget
// for every periodic task.
type MonitorConfig struct {
	BreakevenInterval   time.Duration `json:"breakeven_interval" yaml:"breakeven_interval"`
	ReconcileInterval   time.Duration `json:"reconcile_interval" yaml:"reconcile_interval"`
	NegativePnlInterval time.Duration `json:"negative_pnl_interval" yaml:"negative_pnl_interval"`
	ExpiryInterval      time.Duration `json:"expiry_interval" yaml:"expiry_interval"`
	GovernorInterval    time.Duration `json:"governor_interval" yaml:"governor_interval"`
	CooldownSweep       time.Duration `json:"cooldown_sweep" yaml:"cooldown_sweep"`
	CycleTimeout        time.Duration `json:"cycle_timeout" yaml:"cycle_timeout"`
}

type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

type NotifyConfig struct {
	Buffer int `json:"buffer" yaml:"buffer"`
}

type MetricsConfig struct {
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
}

// LoadFromFile loads configuration from a file (YAML first, JSON
// fallback) and validates it. Fields absent from the file keep their
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes the configuration out, choosing the format by
// extension (.yaml/.yml → YAML, anything else → indented JSON).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks every threshold the monitors depend on. It runs once at
// startup, before any periodic task starts; a failure here is fatal.
func (c *Config) Validate() error {
	r := c.Risk
	if r.DailyLossPct <= 0 || r.DailyLossPct >= 1 {
		return fmt.Errorf("risk.daily_loss_pct must be in (0,1), got %v", r.DailyLossPct)
	}
	if r.WeeklyLevel1Pct <= 0 || r.WeeklyLevel1Pct >= 1 {
		return fmt.Errorf("risk.weekly_level1_pct must be in (0,1), got %v", r.WeeklyLevel1Pct)
	}
	if r.WeeklyLevel2Pct <= 0 || r.WeeklyLevel2Pct >= 1 {
		return fmt.Errorf("risk.weekly_level2_pct must be in (0,1), got %v", r.WeeklyLevel2Pct)
	}
	if r.WeeklyLevel1Pct >= r.WeeklyLevel2Pct {
		return fmt.Errorf("risk.weekly_level1_pct (%v) must be below weekly_level2_pct (%v)",
			r.WeeklyLevel1Pct, r.WeeklyLevel2Pct)
	}
	if r.ReductionFactor <= 0 || r.ReductionFactor >= 1 {
		return fmt.Errorf("risk.reduction_factor must be in (0,1), got %v", r.ReductionFactor)
	}
	if r.RecoveryFraction <= 0 || r.RecoveryFraction >= 1 {
		return fmt.Errorf("risk.recovery_fraction must be in (0,1), got %v", r.RecoveryFraction)
	}
	if r.DailyResetHourUTC < 0 || r.DailyResetHourUTC > 23 {
		return fmt.Errorf("risk.daily_reset_hour_utc must be in [0,23], got %d", r.DailyResetHourUTC)
	}
	if r.WeeklyResetWeekday < time.Sunday || r.WeeklyResetWeekday > time.Saturday {
		return fmt.Errorf("risk.weekly_reset_weekday must be 0-6, got %d", r.WeeklyResetWeekday)
	}

	t := c.Trading
	if t.MaxActiveTrades < 1 {
		return fmt.Errorf("trading.max_active_trades must be at least 1, got %d", t.MaxActiveTrades)
	}
	if t.BasePositionSizeUSD <= 0 {
		return fmt.Errorf("trading.base_position_size_usd must be positive, got %v", t.BasePositionSizeUSD)
	}
	if t.StopLossPct <= 0 || t.StopLossPct >= 1 {
		return fmt.Errorf("trading.stop_loss_pct must be in (0,1), got %v", t.StopLossPct)
	}
	if t.TakeProfitPct <= 0 {
		return fmt.Errorf("trading.take_profit_pct must be positive, got %v", t.TakeProfitPct)
	}
	if t.BreakevenThresholdPct <= 0 {
		return fmt.Errorf("trading.breakeven_threshold_pct must be positive, got %v", t.BreakevenThresholdPct)
	}
	if t.BreakevenBufferPct < 0 || t.BreakevenBufferPct >= t.BreakevenThresholdPct {
		return fmt.Errorf("trading.breakeven_buffer_pct must be in [0, breakeven_threshold_pct), got %v",
			t.BreakevenBufferPct)
	}
	if t.SmallMovePct <= 0 {
		return fmt.Errorf("trading.small_move_pct must be positive, got %v", t.SmallMovePct)
	}
	if t.NegativePnlCloseHours <= 0 {
		return fmt.Errorf("trading.negative_pnl_close_hours must be positive, got %v", t.NegativePnlCloseHours)
	}
	if t.TradeMaxAgeHours <= t.NegativePnlCloseHours {
		return fmt.Errorf("trading.trade_max_age_hours (%v) must exceed negative_pnl_close_hours (%v)",
			t.TradeMaxAgeHours, t.NegativePnlCloseHours)
	}
	if t.MarkPriceMaxAge <= 0 {
		return fmt.Errorf("trading.mark_price_max_age must be positive, got %v", t.MarkPriceMaxAge)
	}

	cd := c.Cooldown
	if cd.BlockHours < 1 || cd.BlockHours > 24 || 24%cd.BlockHours != 0 {
		return fmt.Errorf("cooldown.block_hours must divide 24 evenly, got %d", cd.BlockHours)
	}
	if cd.AnchorHourUTC < 0 || cd.AnchorHourUTC > 23 {
		return fmt.Errorf("cooldown.anchor_hour_utc must be in [0,23], got %d", cd.AnchorHourUTC)
	}
	if cd.SweepRetention <= 0 {
		return fmt.Errorf("cooldown.sweep_retention must be positive, got %v", cd.SweepRetention)
	}

	m := c.Monitors
	intervals := []struct {
		name string
		d    time.Duration
	}{
		{"monitors.breakeven_interval", m.BreakevenInterval},
		{"monitors.reconcile_interval", m.ReconcileInterval},
		{"monitors.negative_pnl_interval", m.NegativePnlInterval},
		{"monitors.expiry_interval", m.ExpiryInterval},
		{"monitors.governor_interval", m.GovernorInterval},
		{"monitors.cooldown_sweep", m.CooldownSweep},
		{"monitors.cycle_timeout", m.CycleTimeout},
	}
	for _, iv := range intervals {
		if iv.d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", iv.name, iv.d)
		}
	}

	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	if c.Notify.Buffer < 1 {
		return fmt.Errorf("notify.buffer must be at least 1, got %d", c.Notify.Buffer)
	}

	return nil
}

// Default returns a configuration with the stock thresholds.
func Default() *Config {
	return &Config{
		Risk: RiskConfig{
			DailyLossPct:       0.02,
			WeeklyLevel1Pct:    0.04,
			WeeklyLevel2Pct:    0.06,
			ReductionFactor:    0.5,
			RecoveryFraction:   0.5,
			DailyResetHourUTC:  0,
			WeeklyResetWeekday: time.Monday,
		},
		Trading: TradingConfig{
			MaxActiveTrades:       30,
			BasePositionSizeUSD:   150,
			StopLossPct:           0.08,
			TakeProfitPct:         0.30,
			BreakevenThresholdPct: 0.08,
			BreakevenBufferPct:    0.001,
			SmallMovePct:          0.01,
			NegativePnlCloseHours: 8,
			TradeMaxAgeHours:      72,
			MarkPriceMaxAge:       5 * time.Minute,
		},
		Cooldown: CooldownConfig{
			BlockHours:     4,
			AnchorHourUTC:  0,
			SweepRetention: 24 * time.Hour,
		},
		Monitors: MonitorConfig{
			BreakevenInterval:   2 * time.Minute,
			ReconcileInterval:   3 * time.Minute,
			NegativePnlInterval: 3 * time.Minute,
			ExpiryInterval:      time.Minute,
			GovernorInterval:    time.Minute,
			CooldownSweep:       time.Hour,
			CycleTimeout:        10 * time.Second,
		},
		Journal: JournalConfig{
			DBPath: "./riskcore.sqlite",
		},
		Notify: NotifyConfig{
			Buffer: 256,
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9109",
		},
	}
}
