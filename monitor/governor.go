package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lxalgo/riskcore/cooldown"
	"github.com/lxalgo/riskcore/gateway"
	"github.com/lxalgo/riskcore/ledger"
	"github.com/lxalgo/riskcore/metrics"
	"github.com/lxalgo/riskcore/notify"
	"github.com/lxalgo/riskcore/risk"
)

// GovernorCycle feeds the drawdown governor one equity snapshot per
// cycle and acts on its transitions. Equity is fetched fresh every
// cycle and never reused; a failed fetch skips the evaluation entirely
// rather than deciding on stale numbers.
type GovernorCycle struct {
	gov    *risk.Governor
	equity gateway.EquitySource
	book   *ledger.Ledger
	gw     gateway.OrderGateway
	nf     notify.Notifier
	log    *zap.Logger
	now    func() time.Time
}

func NewGovernorCycle(gov *risk.Governor, equity gateway.EquitySource, book *ledger.Ledger,
	gw gateway.OrderGateway, nf notify.Notifier, log *zap.Logger) *GovernorCycle {
	return &GovernorCycle{gov: gov, equity: equity, book: book, gw: gw, nf: nf, log: log, now: time.Now}
}

func (g *GovernorCycle) Run(ctx context.Context) error {
	eq, err := g.equity.GetEquity(ctx)
	if err != nil {
		return cycleErr("fetch equity", err)
	}
	now := g.now()
	tr := g.gov.Evaluate(eq, now)

	metrics.Equity.Set(eq)
	metrics.WeeklyDrawdownLevel.Set(float64(tr.Level))
	metrics.SizeMultiplier.Set(g.gov.SizeMultiplier())
	if g.gov.BreakerActive() {
		metrics.DailyBreakerActive.Set(1)
	} else {
		metrics.DailyBreakerActive.Set(0)
	}

	if tr.DailyBreakerTripped {
		g.nf.Publish(notify.Event{
			Kind: notify.BreakerTripped, At: now,
			Text:   "daily circuit breaker tripped, flattening all positions",
			Fields: map[string]any{"equity": eq},
		})
	}
	if tr.LevelChanged {
		g.nf.Publish(notify.Event{
			Kind: notify.WeeklyLevel, At: now,
			Text:   "weekly drawdown level changed",
			Fields: map[string]any{"level": tr.Level.String(), "equity": eq},
		})
	}
	if tr.DailyReset || tr.WeeklyReset {
		g.nf.Publish(notify.Event{
			Kind: notify.BaselineReset, At: now,
			Text:   "drawdown baseline reset",
			Fields: map[string]any{"daily": tr.DailyReset, "weekly": tr.WeeklyReset, "equity": eq},
		})
	}

	if tr.CloseAll {
		return g.closeAll(ctx)
	}
	return nil
}

// closeAll issues closes for every tracked trade. Settlement is left to
// reconciliation. Errors are collected per trade so one refused close
// does not strand the rest.
func (g *GovernorCycle) closeAll(ctx context.Context) error {
	var firstErr error
	for _, tr := range g.book.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.gw.ClosePosition(ctx, tr.Key.Symbol, tr.Key.Rule); err != nil {
			g.log.Error("close-all failed for trade",
				zap.String("symbol", tr.Key.Symbol),
				zap.String("rule", tr.Key.Rule),
				zap.Error(err))
			if firstErr == nil {
				firstErr = cycleErr("close all", err)
			}
		}
	}
	return firstErr
}

// CooldownSweep drops expired cooldown records to bound memory.
type CooldownSweep struct {
	cool *cooldown.Tracker
	log  *zap.Logger
	now  func() time.Time
}

func NewCooldownSweep(cool *cooldown.Tracker, log *zap.Logger) *CooldownSweep {
	return &CooldownSweep{cool: cool, log: log, now: time.Now}
}

func (c *CooldownSweep) Run(ctx context.Context) error {
	if n := c.cool.Sweep(c.now()); n > 0 {
		c.log.Debug("cooldown records swept", zap.Int("removed", n))
	}
	return nil
}
