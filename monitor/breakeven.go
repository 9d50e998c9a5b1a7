package monitor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lxalgo/riskcore/config"
	"github.com/lxalgo/riskcore/gateway"
	"github.com/lxalgo/riskcore/journal"
	"github.com/lxalgo/riskcore/ledger"
	"github.com/lxalgo/riskcore/market"
	"github.com/lxalgo/riskcore/metrics"
	"github.com/lxalgo/riskcore/notify"
	"github.com/lxalgo/riskcore/risk"
)

// Breakeven promotes active trades whose unrealized move has crossed
// the securing threshold: the stop is amended to just past entry and
// the trade moves to the secured tier. Promotion happens only after the
// exchange acknowledges the amend, so a failed amend leaves the trade
// active and retried next cycle.
type Breakeven struct {
	cfg   config.TradingConfig
	book  *ledger.Ledger
	gw    gateway.OrderGateway
	marks *market.Book
	jr    journal.Journal
	nf    notify.Notifier
	log   *zap.Logger
	now   func() time.Time
}

func NewBreakeven(cfg config.TradingConfig, book *ledger.Ledger, gw gateway.OrderGateway,
	marks *market.Book, jr journal.Journal, nf notify.Notifier, log *zap.Logger) *Breakeven {
	return &Breakeven{
		cfg: cfg, book: book, gw: gw, marks: marks, jr: jr, nf: nf,
		log: log, now: time.Now,
	}
}

func (b *Breakeven) Run(ctx context.Context) error {
	now := b.now()
	var firstErr error
	for _, tr := range b.book.Tiered(ledger.Active) {
		if err := ctx.Err(); err != nil {
			return err
		}
		mark, err := b.marks.Price(tr.Key.Symbol, now)
		if err != nil {
			if !errors.Is(err, market.ErrStale) && firstErr == nil {
				firstErr = err
			}
			continue
		}
		if risk.Delta(tr.EntryPrice, mark, tr.Side) < b.cfg.BreakevenThresholdPct {
			continue
		}
		if err := b.secure(ctx, tr, mark); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *Breakeven) secure(ctx context.Context, tr ledger.Trade, mark float64) error {
	newStop := risk.BreakevenStop(tr.EntryPrice, b.cfg.BreakevenBufferPct, tr.StopLoss, tr.Side)
	if err := b.gw.AmendStop(ctx, tr.Key.Symbol, tr.Key.Rule, newStop); err != nil {
		return cycleErr("amend stop", err)
	}

	securedAt := b.now()

	// The exchange ack is the commit point.
	if err := b.book.Secure(tr.Key, securedAt); err != nil {
		// Reconciliation removed the trade between our read and the ack.
		b.log.Debug("trade vanished during breakeven promotion",
			zap.String("symbol", tr.Key.Symbol), zap.String("rule", tr.Key.Rule))
		return nil
	}
	_ = b.book.SetStop(tr.Key, newStop)

	if err := b.jr.RecordSecured(tr.ID, securedAt); err != nil {
		b.log.Warn("journal secured update failed", zap.String("trade_id", tr.ID), zap.Error(err))
	}
	metrics.TradesSecuredTotal.Inc()
	b.nf.Publish(notify.Event{
		Kind:   notify.TradeSecured,
		Symbol: tr.Key.Symbol,
		Rule:   tr.Key.Rule,
		At:     securedAt,
		Text:   "stop moved to breakeven",
		Fields: map[string]any{"entry": tr.EntryPrice, "mark": mark, "stop": newStop},
	})
	b.log.Info("trade secured",
		zap.String("symbol", tr.Key.Symbol),
		zap.String("rule", tr.Key.Rule),
		zap.Float64("entry", tr.EntryPrice),
		zap.Float64("new_stop", newStop))
	return nil
}
