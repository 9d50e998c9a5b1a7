// Package risk holds the drawdown governor and the trade admission
// checks. The governor is a pure state machine over equity snapshots;
// callers feed it one equity reading per cycle and act on the
// transition it reports.
package risk

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lxalgo/riskcore/config"
)

// WeeklyLevel is the weekly drawdown escalation stage.
type WeeklyLevel int

const (
	Level0 WeeklyLevel = iota // full size
	Level1                    // reduced size until equity recovers
	Level2                    // halted until the weekly reset
)

func (l WeeklyLevel) String() string {
	switch l {
	case Level1:
		return "level1"
	case Level2:
		return "level2"
	default:
		return "level0"
	}
}

// Transition reports what one Evaluate call changed.
type Transition struct {
	// CloseAll is set when a newly tripped breaker or Level2 requires
	// flattening every open position.
	CloseAll bool

	DailyBreakerTripped bool
	DailyReset          bool
	WeeklyReset         bool
	LevelChanged        bool
	Level               WeeklyLevel
	Recovered           bool
}

// Governor tracks the daily circuit breaker and the weekly drawdown
// ladder. All exported methods are safe for concurrent use; Evaluate is
// expected to be called from a single monitor loop while
// IsTradingAllowed and SizeMultiplier are read from the admission path.
type Governor struct {
	cfg config.RiskConfig
	log *zap.Logger

	mu          sync.RWMutex
	dailyStart  float64
	weeklyStart float64
	breaker     bool
	level       WeeklyLevel
	target      float64 // Level1 recovery target, fixed when tripped
	multiplier  float64
	nextDaily   time.Time
	nextWeekly  time.Time
	lastEquity  float64
	lastAt      time.Time
}

// NewGovernor seeds both drawdown baselines from the current equity.
func NewGovernor(cfg config.RiskConfig, equity float64, now time.Time, log *zap.Logger) *Governor {
	g := &Governor{
		cfg:         cfg,
		log:         log,
		dailyStart:  equity,
		weeklyStart: equity,
		multiplier:  1.0,
		lastEquity:  equity,
		lastAt:      now,
	}
	g.nextDaily = nextDailyReset(now, cfg.DailyResetHourUTC)
	g.nextWeekly = nextWeeklyReset(now, cfg.WeeklyResetWeekday, cfg.DailyResetHourUTC)
	return g
}

func nextDailyReset(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

func nextWeeklyReset(now time.Time, day time.Weekday, hour int) time.Time {
	next := nextDailyReset(now, hour)
	for next.Weekday() != day {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// Evaluate feeds one equity snapshot into the state machine. Scheduled
// resets apply first, then drawdown checks against the (possibly fresh)
// baselines. The snapshot is cached only until the next call; callers
// that fail to fetch equity simply skip the cycle.
func (g *Governor) Evaluate(equity float64, now time.Time) Transition {
	g.mu.Lock()
	defer g.mu.Unlock()

	var tr Transition
	g.lastEquity = equity
	g.lastAt = now

	// Scheduled resets win over any ongoing drawdown state. A new day
	// or week starts from a clean slate even if equity is still down.
	if !now.Before(g.nextDaily) {
		g.dailyStart = equity
		g.breaker = false
		g.nextDaily = nextDailyReset(now, g.cfg.DailyResetHourUTC)
		tr.DailyReset = true
		g.log.Info("daily baseline reset", zap.Float64("equity", equity))
	}
	if !now.Before(g.nextWeekly) {
		g.weeklyStart = equity
		g.level = Level0
		g.target = 0
		g.multiplier = 1.0
		g.nextWeekly = nextWeeklyReset(now, g.cfg.WeeklyResetWeekday, g.cfg.DailyResetHourUTC)
		tr.WeeklyReset = true
		g.log.Info("weekly baseline reset", zap.Float64("equity", equity))
	}

	// Daily circuit breaker.
	if !g.breaker && g.dailyStart > 0 {
		drop := (g.dailyStart - equity) / g.dailyStart
		if drop >= g.cfg.DailyLossPct {
			g.breaker = true
			tr.DailyBreakerTripped = true
			tr.CloseAll = true
			g.log.Warn("daily circuit breaker tripped",
				zap.Float64("daily_start", g.dailyStart),
				zap.Float64("equity", equity),
				zap.String("drop", fmt.Sprintf("%.2f%%", 100*drop)))
		}
	}

	// Weekly ladder.
	if g.weeklyStart > 0 {
		drop := (g.weeklyStart - equity) / g.weeklyStart
		switch g.level {
		case Level0:
			if drop >= g.cfg.WeeklyLevel2Pct {
				g.escalateLevel2(equity, drop, &tr)
			} else if drop >= g.cfg.WeeklyLevel1Pct {
				g.escalateLevel1(equity, drop, &tr)
			}
		case Level1:
			if drop >= g.cfg.WeeklyLevel2Pct {
				g.escalateLevel2(equity, drop, &tr)
			} else if equity >= g.target {
				g.level = Level0
				g.target = 0
				g.multiplier = 1.0
				tr.LevelChanged = true
				tr.Recovered = true
				g.log.Info("weekly drawdown recovered", zap.Float64("equity", equity))
			}
		case Level2:
			// Held until the weekly reset.
		}
	}
	tr.Level = g.level
	return tr
}

func (g *Governor) escalateLevel1(equity, drop float64, tr *Transition) {
	g.level = Level1
	g.multiplier = g.cfg.ReductionFactor
	// The target is pinned at trigger time so recovery is measured
	// against a fixed line, not a moving one.
	g.target = g.weeklyStart - (g.weeklyStart-equity)*(1-g.cfg.RecoveryFraction)
	tr.LevelChanged = true
	g.log.Warn("weekly drawdown level 1",
		zap.Float64("equity", equity),
		zap.String("drop", fmt.Sprintf("%.2f%%", 100*drop)),
		zap.Float64("recovery_target", g.target))
}

func (g *Governor) escalateLevel2(equity, drop float64, tr *Transition) {
	g.level = Level2
	g.multiplier = 0
	g.target = 0
	tr.LevelChanged = true
	tr.CloseAll = true
	g.log.Warn("weekly drawdown level 2, trading halted",
		zap.Float64("equity", equity),
		zap.String("drop", fmt.Sprintf("%.2f%%", 100*drop)),
		zap.Time("halt_until", g.nextWeekly))
}

// IsTradingAllowed reports whether new entries may be admitted. When
// halted the reason names the axis and the time left until the resume
// instant, measured from the last equity snapshot.
func (g *Governor) IsTradingAllowed() (bool, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.breaker {
		return false, fmt.Sprintf("daily circuit breaker active, resumes in %s",
			g.nextDaily.Sub(g.lastAt).Round(time.Minute))
	}
	if g.level == Level2 {
		return false, fmt.Sprintf("weekly drawdown halt, resumes in %s",
			g.nextWeekly.Sub(g.lastAt).Round(time.Minute))
	}
	return true, ""
}

// SizeMultiplier returns the factor applied to the base position size.
func (g *Governor) SizeMultiplier() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.breaker || g.level == Level2 {
		return 0
	}
	return g.multiplier
}

// Level returns the current weekly escalation stage.
func (g *Governor) Level() WeeklyLevel {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.level
}

// BreakerActive reports whether the daily circuit breaker is tripped.
func (g *Governor) BreakerActive() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.breaker
}

// RecoveryTarget returns the Level1 recovery line, zero outside Level1.
func (g *Governor) RecoveryTarget() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.target
}

// Snapshot returns the governor state for logging and metrics.
func (g *Governor) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Snapshot{
		DailyStart:      g.dailyStart,
		WeeklyStart:     g.weeklyStart,
		BreakerActive:   g.breaker,
		Level:           g.level,
		Multiplier:      g.multiplier,
		RecoveryTarget:  g.target,
		NextDailyReset:  g.nextDaily,
		NextWeeklyReset: g.nextWeekly,
		LastEquity:      g.lastEquity,
		LastEquityAt:    g.lastAt,
	}
}

// Snapshot is a point-in-time copy of governor state.
type Snapshot struct {
	DailyStart      float64
	WeeklyStart     float64
	BreakerActive   bool
	Level           WeeklyLevel
	Multiplier      float64
	RecoveryTarget  float64
	NextDailyReset  time.Time
	NextWeeklyReset time.Time
	LastEquity      float64
	LastEquityAt    time.Time
}
