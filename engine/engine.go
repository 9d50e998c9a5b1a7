// Package engine wires the risk core together: signal intake through
// admission, startup recovery from the journal and the monitor suite.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lxalgo/riskcore/config"
	"github.com/lxalgo/riskcore/cooldown"
	"github.com/lxalgo/riskcore/gateway"
	"github.com/lxalgo/riskcore/journal"
	"github.com/lxalgo/riskcore/ledger"
	"github.com/lxalgo/riskcore/market"
	"github.com/lxalgo/riskcore/metrics"
	"github.com/lxalgo/riskcore/monitor"
	"github.com/lxalgo/riskcore/notify"
	"github.com/lxalgo/riskcore/risk"
)

// Signal is an entry request from a strategy rule.
type Signal struct {
	Symbol string
	Rule   string
	Side   gateway.Side
}

// Engine owns the shared state and the trade intake path.
type Engine struct {
	cfg    *config.Config
	log    *zap.Logger
	book   *ledger.Ledger
	cool   *cooldown.Tracker
	gov    *risk.Governor
	adm    *risk.Admission
	gw     gateway.OrderGateway
	equity gateway.EquitySource
	marks  *market.Book
	jr     journal.Journal
	nf     notify.Notifier
	now    func() time.Time
}

// Deps carries the external collaborators the engine is built from.
type Deps struct {
	Gateway gateway.OrderGateway
	Equity  gateway.EquitySource
	Marks   *market.Book
	Journal journal.Journal
	Notify  notify.Notifier
	Logger  *zap.Logger
}

// New builds an engine. startEquity seeds the drawdown baselines.
func New(cfg *config.Config, startEquity float64, d Deps) *Engine {
	now := time.Now()
	book := ledger.New()
	cool := cooldown.New(cfg.Cooldown.BlockHours, cfg.Cooldown.AnchorHourUTC, cfg.Cooldown.SweepRetention)
	gov := risk.NewGovernor(cfg.Risk, startEquity, now, d.Logger)
	return &Engine{
		cfg:    cfg,
		log:    d.Logger,
		book:   book,
		cool:   cool,
		gov:    gov,
		adm:    risk.NewAdmission(cfg.Trading, gov, book, cool),
		gw:     d.Gateway,
		equity: d.Equity,
		marks:  d.Marks,
		jr:     d.Journal,
		nf:     d.Notify,
		now:    time.Now,
	}
}

// Ledger exposes the trade book for status reporting.
func (e *Engine) Ledger() *ledger.Ledger { return e.book }

// Governor exposes drawdown state for status reporting.
func (e *Engine) Governor() *risk.Governor { return e.gov }

// Marks exposes the price book so a feed can push updates into it.
func (e *Engine) Marks() *market.Book { return e.marks }

// Recover rebuilds the ledger and cooldown state from journal rows that
// never closed. Called once before any monitor starts.
func (e *Engine) Recover() error {
	rows, err := e.jr.OpenTrades()
	if err != nil {
		return fmt.Errorf("recover open trades: %w", err)
	}
	for _, r := range rows {
		tr := r.ToTrade()
		if err := e.book.Register(tr); err != nil {
			e.log.Warn("skipping duplicate journal row",
				zap.String("trade_id", r.TradeID), zap.Error(err))
			continue
		}
		if tr.Tier == ledger.Secured {
			// Register always lands in the active tier; the promotion
			// keeps the stamp persisted at breakeven time.
			_ = e.book.Secure(tr.Key, tr.SecuredAt)
		}
		e.cool.Record(tr.Key.Symbol, tr.OpenedAt)
	}
	e.updateGauges()
	e.log.Info("ledger recovered", zap.Int("trades", len(rows)))
	return nil
}

// ProcessSignal runs a signal through admission and, when admitted,
// places the order and registers the trade. The ledger is only written
// after the exchange confirms the fill; a failed placement leaves no
// trace behind.
func (e *Engine) ProcessSignal(ctx context.Context, sig Signal) (risk.Decision, error) {
	now := e.now()
	key := ledger.Key{Symbol: sig.Symbol, Rule: sig.Rule}

	d := e.adm.Decide(key, now)
	if !d.Allowed {
		metrics.AdmissionsTotal.WithLabelValues(d.Reason()).Inc()
		e.log.Info("signal rejected",
			zap.String("symbol", sig.Symbol),
			zap.String("rule", sig.Rule),
			zap.String("reason", d.Reason()))
		return d, nil
	}
	metrics.AdmissionsTotal.WithLabelValues("admitted").Inc()

	mark, err := e.marks.Price(sig.Symbol, now)
	if err != nil {
		return d, fmt.Errorf("entry price for %s: %w", sig.Symbol, err)
	}

	req := gateway.MarketOrderRequest{
		Symbol:     sig.Symbol,
		Rule:       sig.Rule,
		Side:       sig.Side,
		Qty:        risk.Qty(d.SizeUSD, mark),
		StopLoss:   risk.StopPrice(mark, e.cfg.Trading.StopLossPct, sig.Side),
		TakeProfit: risk.TakeProfitPrice(mark, e.cfg.Trading.TakeProfitPct, sig.Side),
	}
	fill, err := e.gw.PlaceMarketOrder(ctx, req)
	if err != nil {
		return d, fmt.Errorf("place order %s/%s: %w", sig.Symbol, sig.Rule, err)
	}

	tr := ledger.Trade{
		ID:         fill.TradeID,
		Key:        key,
		Side:       sig.Side,
		Qty:        fill.Qty,
		EntryPrice: fill.Price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		OpenedAt:   fill.Time,
	}
	if err := e.book.Register(tr); err != nil {
		// Admission held the duplicate check moments ago; losing the
		// race means another path opened the same trade.
		e.log.Error("fill for already tracked trade",
			zap.String("symbol", sig.Symbol), zap.String("rule", sig.Rule))
		return d, fmt.Errorf("register trade: %w", err)
	}
	e.cool.Record(sig.Symbol, fill.Time)
	metrics.TradesOpenedTotal.Inc()

	if err := e.jr.RecordOpen(journal.OpenRecord{
		TradeID:    tr.ID,
		Symbol:     tr.Key.Symbol,
		Rule:       tr.Key.Rule,
		Side:       tr.Side,
		Qty:        tr.Qty,
		EntryPrice: tr.EntryPrice,
		StopLoss:   tr.StopLoss,
		TakeProfit: tr.TakeProfit,
		OpenedAt:   tr.OpenedAt,
	}); err != nil {
		e.log.Warn("journal open failed", zap.String("trade_id", tr.ID), zap.Error(err))
	}
	e.updateGauges()
	e.nf.Publish(notify.Event{
		Kind:   notify.TradeOpened,
		Symbol: sig.Symbol,
		Rule:   sig.Rule,
		At:     fill.Time,
		Text:   "trade opened",
		Fields: map[string]any{"side": sig.Side.String(), "entry": fill.Price, "qty": fill.Qty},
	})
	e.log.Info("trade opened",
		zap.String("symbol", sig.Symbol),
		zap.String("rule", sig.Rule),
		zap.String("side", sig.Side.String()),
		zap.Float64("entry", fill.Price),
		zap.Float64("qty", fill.Qty))
	return d, nil
}

func (e *Engine) updateGauges() {
	metrics.OpenTrades.WithLabelValues(ledger.Active.String()).Set(float64(e.book.CountTier(ledger.Active)))
	metrics.OpenTrades.WithLabelValues(ledger.Secured.String()).Set(float64(e.book.CountTier(ledger.Secured)))
}

// Run starts every monitor and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	m := e.cfg.Monitors
	runners := []*monitor.Runner{
		monitor.NewRunner("breakeven", m.BreakevenInterval, m.CycleTimeout,
			monitor.NewBreakeven(e.cfg.Trading, e.book, e.gw, e.marks, e.jr, e.nf, e.log).Run, e.log),
		monitor.NewRunner("reconcile", m.ReconcileInterval, m.CycleTimeout,
			e.reconcileCycle(), e.log),
		monitor.NewRunner("negative_pnl", m.NegativePnlInterval, m.CycleTimeout,
			monitor.NewNegativeClose(e.cfg.Trading, e.book, e.gw, e.marks, e.log).Run, e.log),
		monitor.NewRunner("expiry", m.ExpiryInterval, m.CycleTimeout,
			monitor.NewExpiryClose(e.cfg.Trading, e.book, e.gw, e.log).Run, e.log),
		monitor.NewRunner("governor", m.GovernorInterval, m.CycleTimeout,
			monitor.NewGovernorCycle(e.gov, e.equity, e.book, e.gw, e.nf, e.log).Run, e.log),
		monitor.NewRunner("cooldown_sweep", m.CooldownSweep, m.CycleTimeout,
			monitor.NewCooldownSweep(e.cool, e.log).Run, e.log),
	}
	wait := monitor.RunAll(ctx, runners...)
	wait()
}

// reconcileCycle wraps reconciliation so the tier gauges stay current
// after settlements.
func (e *Engine) reconcileCycle() monitor.Task {
	rc := monitor.NewReconcile(e.cfg.Trading, e.book, e.gw, e.jr, e.nf, e.log)
	return func(ctx context.Context) error {
		err := rc.Run(ctx)
		e.updateGauges()
		return err
	}
}
