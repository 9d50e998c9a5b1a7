package monitor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lxalgo/riskcore/config"
	"github.com/lxalgo/riskcore/gateway"
	"github.com/lxalgo/riskcore/ledger"
	"github.com/lxalgo/riskcore/market"
	"github.com/lxalgo/riskcore/risk"
)

// NegativeClose flattens trades that have sat in a loss for too long.
// It only issues the close; reconciliation settles the trade once the
// position disappears from the exchange, so closing and bookkeeping
// never race.
type NegativeClose struct {
	cfg   config.TradingConfig
	book  *ledger.Ledger
	gw    gateway.OrderGateway
	marks *market.Book
	log   *zap.Logger
	now   func() time.Time
}

func NewNegativeClose(cfg config.TradingConfig, book *ledger.Ledger, gw gateway.OrderGateway,
	marks *market.Book, log *zap.Logger) *NegativeClose {
	return &NegativeClose{cfg: cfg, book: book, gw: gw, marks: marks, log: log, now: time.Now}
}

func (n *NegativeClose) Run(ctx context.Context) error {
	now := n.now()
	maxHold := time.Duration(n.cfg.NegativePnlCloseHours) * time.Hour
	var firstErr error
	for _, tr := range n.book.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if now.Sub(tr.OpenedAt) < maxHold {
			continue
		}
		mark, err := n.marks.Price(tr.Key.Symbol, now)
		if err != nil {
			// No fresh price, no forced close.
			continue
		}
		if risk.Delta(tr.EntryPrice, mark, tr.Side) >= 0 {
			continue
		}
		n.log.Info("closing trade held in loss",
			zap.String("symbol", tr.Key.Symbol),
			zap.String("rule", tr.Key.Rule),
			zap.Duration("held", now.Sub(tr.OpenedAt)))
		if err := n.close(ctx, tr.Key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (n *NegativeClose) close(ctx context.Context, k ledger.Key) error {
	err := n.gw.ClosePosition(ctx, k.Symbol, k.Rule)
	if err != nil && !errors.Is(err, context.Canceled) {
		return cycleErr("close position", err)
	}
	return nil
}

// ExpiryClose flattens trades past the maximum holding age regardless
// of PnL. A position nobody exited in three days is a position the
// rules stopped describing.
type ExpiryClose struct {
	cfg  config.TradingConfig
	book *ledger.Ledger
	gw   gateway.OrderGateway
	log  *zap.Logger
	now  func() time.Time
}

func NewExpiryClose(cfg config.TradingConfig, book *ledger.Ledger, gw gateway.OrderGateway, log *zap.Logger) *ExpiryClose {
	return &ExpiryClose{cfg: cfg, book: book, gw: gw, log: log, now: time.Now}
}

func (e *ExpiryClose) Run(ctx context.Context) error {
	now := e.now()
	maxAge := time.Duration(e.cfg.TradeMaxAgeHours) * time.Hour
	var firstErr error
	for _, tr := range e.book.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if now.Sub(tr.OpenedAt) < maxAge {
			continue
		}
		e.log.Info("closing expired trade",
			zap.String("symbol", tr.Key.Symbol),
			zap.String("rule", tr.Key.Rule),
			zap.Duration("age", now.Sub(tr.OpenedAt)))
		if err := e.gw.ClosePosition(ctx, tr.Key.Symbol, tr.Key.Rule); err != nil && firstErr == nil {
			firstErr = cycleErr("close position", err)
		}
	}
	return firstErr
}
