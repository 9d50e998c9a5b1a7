// Package ledger tracks every position the agent currently owns.
//
// A trade is keyed by (symbol, rule) and lives in exactly one of two
// tiers. Active trades still run with their original protective stop.
// Secured trades have had their stop moved to breakeven; they no longer
// risk account capital but still hold a position on the exchange, so
// capacity checks count both tiers.
package ledger

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lxalgo/riskcore/gateway"
)

var (
	ErrDuplicate = errors.New("ledger: trade already registered")
	ErrNotFound  = errors.New("ledger: trade not found")
)

// Tier is the lifecycle stage of a tracked trade.
type Tier int

const (
	Active Tier = iota
	Secured
)

func (t Tier) String() string {
	if t == Secured {
		return "secured"
	}
	return "active"
}

// Key identifies a trade. One rule may hold at most one open trade per
// symbol; distinct rules on the same symbol are independent trades.
type Key struct {
	Symbol string
	Rule   string
}

// Trade is a tracked open position.
type Trade struct {
	ID         string
	Key        Key
	Side       gateway.Side
	Qty        float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	OpenedAt   time.Time
	Tier       Tier
	SecuredAt  time.Time // set on the first promotion, never cleared
}

// Ledger is the in-memory registry of open trades. Safe for concurrent
// use.
type Ledger struct {
	mu     sync.RWMutex
	trades map[Key]*Trade
}

func New() *Ledger {
	return &Ledger{trades: make(map[Key]*Trade)}
}

// Register adds a trade in the active tier. Registering a key that is
// already present returns ErrDuplicate and leaves the existing entry
// untouched.
func (l *Ledger) Register(t Trade) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.trades[t.Key]; ok {
		return ErrDuplicate
	}
	t.Tier = Active
	t.SecuredAt = time.Time{}
	cp := t
	l.trades[t.Key] = &cp
	return nil
}

// Secure promotes a trade to the secured tier and stamps when the
// promotion happened. The promotion is one way and idempotent: securing
// an already-secured trade is a no-op and keeps the original stamp.
func (l *Ledger) Secure(k Key, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.trades[k]
	if !ok {
		return ErrNotFound
	}
	t.Tier = Secured
	if t.SecuredAt.IsZero() {
		t.SecuredAt = at
	}
	return nil
}

// SetStop records the trade's current protective stop after an amend.
func (l *Ledger) SetStop(k Key, stop float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.trades[k]
	if !ok {
		return ErrNotFound
	}
	t.StopLoss = stop
	return nil
}

// RemoveCompletely drops the trade from whichever tier holds it.
// Removing an absent key is a no-op; the caller cannot know whether a
// concurrent sweep already removed it.
func (l *Ledger) RemoveCompletely(k Key) {
	l.mu.Lock()
	delete(l.trades, k)
	l.mu.Unlock()
}

// Get returns a copy of the trade for k.
func (l *Ledger) Get(k Key) (Trade, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.trades[k]
	if !ok {
		return Trade{}, false
	}
	return *t, true
}

// Count returns the number of tracked trades across both tiers. This is
// the figure admission compares against the capacity limit.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}

// CountTier returns the number of trades in one tier.
func (l *Ledger) CountTier(tier Tier) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, t := range l.trades {
		if t.Tier == tier {
			n++
		}
	}
	return n
}

// Has reports whether k is tracked in either tier.
func (l *Ledger) Has(k Key) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.trades[k]
	return ok
}

// All returns copies of every tracked trade, ordered by symbol then
// rule so iteration order is stable for monitors and logs.
func (l *Ledger) All() []Trade {
	l.mu.RLock()
	out := make([]Trade, 0, len(l.trades))
	for _, t := range l.trades {
		out = append(out, *t)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.Symbol != out[j].Key.Symbol {
			return out[i].Key.Symbol < out[j].Key.Symbol
		}
		return out[i].Key.Rule < out[j].Key.Rule
	})
	return out
}

// Tiered returns copies of the trades in one tier, in stable order.
func (l *Ledger) Tiered(tier Tier) []Trade {
	all := l.All()
	out := all[:0]
	for _, t := range all {
		if t.Tier == tier {
			out = append(out, t)
		}
	}
	return out
}
