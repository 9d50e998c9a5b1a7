// Package gateway defines the boundary to the external order layer and
// the account equity source. The concrete exchange client lives outside
// this repository; everything here is the interface the risk core is
// written against.
package gateway

import (
	"context"
	"time"
)

// Side of a position, from the perspective of the entry order.
type Side int

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

// Sign returns +1 for long and -1 for short, the direction profit moves
// with price.
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

// Position is an exchange-reported open position.
type Position struct {
	Symbol string
	Side   Side
	Qty    float64
}

// Fill is one execution reported by the exchange.
type Fill struct {
	Price float64
	Qty   float64
	Time  time.Time
}

// MarketOrderRequest asks the order layer to open a position at market
// with protective stops attached.
type MarketOrderRequest struct {
	Symbol     string
	Rule       string
	Side       Side
	Qty        float64
	StopLoss   float64
	TakeProfit float64
}

// OrderFill reports the entry execution for a market order.
type OrderFill struct {
	TradeID string
	Symbol  string
	Qty     float64
	Price   float64
	Time    time.Time
}

// OrderGateway is the order-placement side of the exchange. Every call
// may be slow or fail transiently; callers bound each call with a
// context timeout and treat failures as skip-and-retry.
type OrderGateway interface {
	GetOpenPositions(ctx context.Context) ([]Position, error)
	GetRecentFills(ctx context.Context, symbol string, since time.Time) ([]Fill, error)
	PlaceMarketOrder(ctx context.Context, req MarketOrderRequest) (OrderFill, error)
	AmendStop(ctx context.Context, symbol, rule string, newStop float64) error
	ClosePosition(ctx context.Context, symbol, rule string) error
}

// EquitySource reports current account equity (wallet balance plus
// unrealized PnL). May fail transiently.
type EquitySource interface {
	GetEquity(ctx context.Context) (float64, error)
}
