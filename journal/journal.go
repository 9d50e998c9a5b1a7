// Package journal persists the trade lifecycle to SQLite so the ledger
// can be rebuilt after a restart.
package journal

import (
	"time"

	"github.com/lxalgo/riskcore/gateway"
	"github.com/lxalgo/riskcore/ledger"
)

// OpenRecord is one trade entry as written at open time.
type OpenRecord struct {
	TradeID    string
	Symbol     string
	Rule       string
	Side       gateway.Side
	Qty        float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	OpenedAt   time.Time
	Secured    bool
	SecuredAt  time.Time
}

// CloseRecord finalizes a trade row.
type CloseRecord struct {
	TradeID   string
	ExitPrice float64
	ClosedAt  time.Time
	PnL       float64
	Label     string
}

// Journal is the persistence boundary for trade state.
type Journal interface {
	RecordOpen(OpenRecord) error
	RecordSecured(tradeID string, at time.Time) error
	RecordClose(CloseRecord) error
	OpenTrades() ([]OpenRecord, error)
	Close() error
}

// ToTrade converts a recovered row back into a ledger entry.
func (r OpenRecord) ToTrade() ledger.Trade {
	tier := ledger.Active
	if r.Secured {
		tier = ledger.Secured
	}
	return ledger.Trade{
		ID:         r.TradeID,
		Key:        ledger.Key{Symbol: r.Symbol, Rule: r.Rule},
		Side:       r.Side,
		Qty:        r.Qty,
		EntryPrice: r.EntryPrice,
		StopLoss:   r.StopLoss,
		TakeProfit: r.TakeProfit,
		OpenedAt:   r.OpenedAt,
		Tier:       tier,
		SecuredAt:  r.SecuredAt,
	}
}
