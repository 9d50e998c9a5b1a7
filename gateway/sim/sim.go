// Package sim is an in-memory gateway used by tests and by the dry-run
// mode of the CLI. It fills market orders instantly at a settable mark
// price and supports per-method fault injection.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lxalgo/riskcore/gateway"
	"github.com/lxalgo/riskcore/pkg/id"
)

var ErrNoPosition = errors.New("sim: no such position")

type position struct {
	symbol string
	rule   string
	side   gateway.Side
	qty    float64
	stop   float64
	take   float64
}

// Engine implements gateway.OrderGateway and gateway.EquitySource.
type Engine struct {
	mu        sync.Mutex
	marks     map[string]float64
	positions map[string]*position // keyed by symbol|rule
	fills     map[string][]gateway.Fill
	equity    float64
	now       func() time.Time

	// Fault injection. When set, the matching call returns the error
	// without touching state.
	FailPlace  error
	FailAmend  error
	FailClose  error
	FailFills  error
	FailEquity error
	FailOpen   error
}

func New(equity float64) *Engine {
	return &Engine{
		marks:     make(map[string]float64),
		positions: make(map[string]*position),
		fills:     make(map[string][]gateway.Fill),
		equity:    equity,
		now:       time.Now,
	}
}

// SetClock overrides the engine's time source. Tests use this to place
// fills at known instants.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	e.now = now
	e.mu.Unlock()
}

// SetMark sets the instant-fill price for a symbol.
func (e *Engine) SetMark(symbol string, price float64) {
	e.mu.Lock()
	e.marks[symbol] = price
	e.mu.Unlock()
}

// SetEquity overrides the reported account equity.
func (e *Engine) SetEquity(v float64) {
	e.mu.Lock()
	e.equity = v
	e.mu.Unlock()
}

// AddFill appends an execution to a symbol's fill history.
func (e *Engine) AddFill(symbol string, f gateway.Fill) {
	e.mu.Lock()
	e.fills[symbol] = append(e.fills[symbol], f)
	e.mu.Unlock()
}

func key(symbol, rule string) string { return symbol + "|" + rule }

func (e *Engine) GetOpenPositions(ctx context.Context) ([]gateway.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailOpen != nil {
		return nil, e.FailOpen
	}
	out := make([]gateway.Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, gateway.Position{Symbol: p.symbol, Side: p.side, Qty: p.qty})
	}
	return out, nil
}

func (e *Engine) GetRecentFills(ctx context.Context, symbol string, since time.Time) ([]gateway.Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailFills != nil {
		return nil, e.FailFills
	}
	var out []gateway.Fill
	for _, f := range e.fills[symbol] {
		if !f.Time.Before(since) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (e *Engine) PlaceMarketOrder(ctx context.Context, req gateway.MarketOrderRequest) (gateway.OrderFill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailPlace != nil {
		return gateway.OrderFill{}, e.FailPlace
	}
	mark, ok := e.marks[req.Symbol]
	if !ok {
		return gateway.OrderFill{}, fmt.Errorf("sim: no mark price for %s", req.Symbol)
	}
	now := e.now()
	e.positions[key(req.Symbol, req.Rule)] = &position{
		symbol: req.Symbol,
		rule:   req.Rule,
		side:   req.Side,
		qty:    req.Qty,
		stop:   req.StopLoss,
		take:   req.TakeProfit,
	}
	e.fills[req.Symbol] = append(e.fills[req.Symbol], gateway.Fill{Price: mark, Qty: req.Qty, Time: now})
	return gateway.OrderFill{
		TradeID: id.New(),
		Symbol:  req.Symbol,
		Qty:     req.Qty,
		Price:   mark,
		Time:    now,
	}, nil
}

func (e *Engine) AmendStop(ctx context.Context, symbol, rule string, newStop float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailAmend != nil {
		return e.FailAmend
	}
	p, ok := e.positions[key(symbol, rule)]
	if !ok {
		return ErrNoPosition
	}
	p.stop = newStop
	return nil
}

func (e *Engine) ClosePosition(ctx context.Context, symbol, rule string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailClose != nil {
		return e.FailClose
	}
	k := key(symbol, rule)
	p, ok := e.positions[k]
	if !ok {
		return ErrNoPosition
	}
	if mark, ok := e.marks[symbol]; ok {
		e.fills[symbol] = append(e.fills[symbol], gateway.Fill{Price: mark, Qty: p.qty, Time: e.now()})
	}
	delete(e.positions, k)
	return nil
}

func (e *Engine) GetEquity(ctx context.Context) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailEquity != nil {
		return 0, e.FailEquity
	}
	return e.equity, nil
}

// Stop returns the current protective stop for a position. Test helper.
func (e *Engine) Stop(symbol, rule string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[key(symbol, rule)]
	if !ok {
		return 0, false
	}
	return p.stop, true
}

// HasPosition reports whether a position is open. Test helper.
func (e *Engine) HasPosition(symbol, rule string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.positions[key(symbol, rule)]
	return ok
}
