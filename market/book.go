// Package market holds the mark-price cache the monitors read from.
package market

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrStale = errors.New("market: mark price stale")

// Mark is one cached mark price observation.
type Mark struct {
	Price float64
	At    time.Time
}

// Book caches the latest mark price per symbol. Monitors refuse to act
// on prices older than the configured maximum age rather than moving
// stops or classifying exits against a dead feed.
type Book struct {
	maxAge time.Duration

	mu    sync.RWMutex
	marks map[string]Mark
}

func NewBook(maxAge time.Duration) *Book {
	return &Book{maxAge: maxAge, marks: make(map[string]Mark)}
}

// Update stores the latest mark for symbol.
func (b *Book) Update(symbol string, price float64, at time.Time) {
	b.mu.Lock()
	b.marks[symbol] = Mark{Price: price, At: at}
	b.mu.Unlock()
}

// Price returns the cached mark for symbol as of now. A missing symbol
// or an observation older than the maximum age returns ErrStale.
func (b *Book) Price(symbol string, now time.Time) (float64, error) {
	b.mu.RLock()
	m, ok := b.marks[symbol]
	b.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: no observation for %s", ErrStale, symbol)
	}
	if now.Sub(m.At) > b.maxAge {
		return 0, fmt.Errorf("%w: %s last seen %s ago", ErrStale, symbol, now.Sub(m.At).Round(time.Second))
	}
	return m.Price, nil
}

// Last returns the raw cached observation without the staleness check.
func (b *Book) Last(symbol string) (Mark, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.marks[symbol]
	return m, ok
}
