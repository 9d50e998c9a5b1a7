package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lxalgo/riskcore/config"
	"github.com/lxalgo/riskcore/gateway"
	"github.com/lxalgo/riskcore/journal"
	"github.com/lxalgo/riskcore/ledger"
	"github.com/lxalgo/riskcore/metrics"
	"github.com/lxalgo/riskcore/notify"
	"github.com/lxalgo/riskcore/risk"
)

// Reconcile detects trades the exchange closed on its own (stop fills,
// target fills, liquidations, manual closes) and settles them: the exit
// is classified from the fill tape, the journal row is finalized and
// the ledger entry removed.
type Reconcile struct {
	cfg  config.TradingConfig
	book *ledger.Ledger
	gw   gateway.OrderGateway
	jr   journal.Journal
	nf   notify.Notifier
	log  *zap.Logger
	now  func() time.Time
}

func NewReconcile(cfg config.TradingConfig, book *ledger.Ledger, gw gateway.OrderGateway,
	jr journal.Journal, nf notify.Notifier, log *zap.Logger) *Reconcile {
	return &Reconcile{cfg: cfg, book: book, gw: gw, jr: jr, nf: nf, log: log, now: time.Now}
}

func (r *Reconcile) Run(ctx context.Context) error {
	positions, err := r.gw.GetOpenPositions(ctx)
	if err != nil {
		// An empty answer here and a failed call are very different
		// things. Settling every trade off a transient error would be
		// a mass phantom close, so the whole cycle is skipped.
		return cycleErr("fetch open positions", err)
	}

	alive := make(map[string]bool, len(positions))
	for _, p := range positions {
		alive[p.Symbol+"|"+p.Side.String()] = true
	}

	var firstErr error
	for _, tr := range r.book.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if alive[tr.Key.Symbol+"|"+tr.Side.String()] {
			continue
		}
		if err := r.settle(ctx, tr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Reconcile) settle(ctx context.Context, tr ledger.Trade) error {
	now := r.now()
	exit, closedAt, known, err := r.exitFill(ctx, tr)
	if err != nil {
		// Leave the trade tracked; next cycle retries.
		return cycleErr("fetch fills", err)
	}

	label := LabelUnknown
	if known {
		label = Classify(ExitFacts{
			Entry:    tr.EntryPrice,
			Exit:     exit,
			Side:     tr.Side,
			Secured:  tr.Tier == ledger.Secured,
			OpenedAt: tr.OpenedAt,
			ClosedAt: closedAt,
		}, r.cfg)
	}
	pnl := (exit - tr.EntryPrice) * tr.Qty * tr.Side.Sign()
	movePct := risk.Delta(tr.EntryPrice, exit, tr.Side) * 100
	held := closedAt.Sub(tr.OpenedAt)

	if err := r.jr.RecordClose(journal.CloseRecord{
		TradeID:   tr.ID,
		ExitPrice: exit,
		ClosedAt:  closedAt,
		PnL:       pnl,
		Label:     label,
	}); err != nil {
		r.log.Warn("journal close failed", zap.String("trade_id", tr.ID), zap.Error(err))
	}
	r.book.RemoveCompletely(tr.Key)

	metrics.ExitClassificationsTotal.WithLabelValues(label).Inc()
	r.nf.Publish(notify.Event{
		Kind:   notify.TradeClosed,
		Symbol: tr.Key.Symbol,
		Rule:   tr.Key.Rule,
		At:     now,
		Text:   "trade closed: " + label,
		Fields: map[string]any{
			"entry":    tr.EntryPrice,
			"exit":     exit,
			"pnl":      pnl,
			"move_pct": movePct,
			"held":     held.String(),
		},
	})
	r.log.Info("trade reconciled",
		zap.String("symbol", tr.Key.Symbol),
		zap.String("rule", tr.Key.Rule),
		zap.String("label", label),
		zap.Float64("exit", exit),
		zap.Float64("pnl", pnl),
		zap.Float64("move_pct", movePct),
		zap.Duration("held", held))
	return nil
}

// exitFill returns the first fill strictly after the trade opened,
// which is the fill that actually took the position off. When the tape
// has nothing past the entry the exit is pinned to the entry price so
// settlement stays deterministic.
func (r *Reconcile) exitFill(ctx context.Context, tr ledger.Trade) (price float64, at time.Time, known bool, err error) {
	fills, err := r.gw.GetRecentFills(ctx, tr.Key.Symbol, tr.OpenedAt)
	if err != nil {
		return 0, time.Time{}, false, err
	}
	for _, f := range fills {
		if f.Time.After(tr.OpenedAt) && (!known || f.Time.Before(at)) {
			price, at, known = f.Price, f.Time, true
		}
	}
	if !known {
		return tr.EntryPrice, r.now(), false, nil
	}
	return price, at, true, nil
}
