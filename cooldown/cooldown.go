// Package cooldown blocks re-entry on a symbol until the clock block
// that contained its last entry has rolled over.
//
// The day is cut into fixed blocks anchored at a configured UTC hour
// (by default four-hour blocks from 00:00). A trade opened anywhere
// inside a block locks the symbol until that block ends, so a trade
// opened one minute before the boundary cools down for one minute and
// a trade opened right after it cools down for nearly a full block.
package cooldown

import (
	"sync"
	"time"
)

// Tracker records last entry times per symbol. Safe for concurrent use.
type Tracker struct {
	block     time.Duration
	anchor    time.Duration // offset of the first block from midnight UTC
	retention time.Duration

	mu   sync.RWMutex
	last map[string]time.Time
}

// New builds a tracker with blocks of blockHours anchored at
// anchorHourUTC. Entries older than retention are dropped by Sweep.
func New(blockHours, anchorHourUTC int, retention time.Duration) *Tracker {
	return &Tracker{
		block:     time.Duration(blockHours) * time.Hour,
		anchor:    time.Duration(anchorHourUTC) * time.Hour,
		retention: retention,
		last:      make(map[string]time.Time),
	}
}

// blockEnd returns the end of the block containing t.
func (tr *Tracker) blockEnd(t time.Time) time.Time {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	first := midnight.Add(tr.anchor)
	if t.Before(first) {
		first = first.Add(-24 * time.Hour)
	}
	elapsed := t.Sub(first)
	start := first.Add(elapsed / tr.block * tr.block)
	return start.Add(tr.block)
}

// Record notes that a trade was opened on symbol at openedAt. A later
// entry always wins; recording an older time than the stored one is
// ignored.
func (tr *Tracker) Record(symbol string, openedAt time.Time) {
	tr.mu.Lock()
	if prev, ok := tr.last[symbol]; !ok || openedAt.After(prev) {
		tr.last[symbol] = openedAt
	}
	tr.mu.Unlock()
}

// CanTrade reports whether symbol may be entered at now.
func (tr *Tracker) CanTrade(symbol string, now time.Time) bool {
	tr.mu.RLock()
	opened, ok := tr.last[symbol]
	tr.mu.RUnlock()
	if !ok {
		return true
	}
	return !now.Before(tr.blockEnd(opened))
}

// NextAllowed returns the instant from which symbol may trade again.
// For an unknown symbol it returns the zero time.
func (tr *Tracker) NextAllowed(symbol string) time.Time {
	tr.mu.RLock()
	opened, ok := tr.last[symbol]
	tr.mu.RUnlock()
	if !ok {
		return time.Time{}
	}
	return tr.blockEnd(opened)
}

// Sweep drops records whose cooldown expired more than the retention
// window ago and returns how many were removed. A record is never
// dropped while its block is still running, whatever the retention, so
// the sweep only bounds memory on long runs and cannot unlock a symbol
// early.
func (tr *Tracker) Sweep(now time.Time) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	n := 0
	for sym, opened := range tr.last {
		if now.After(tr.blockEnd(opened).Add(tr.retention)) {
			delete(tr.last, sym)
			n++
		}
	}
	return n
}

// Len returns the number of tracked symbols.
func (tr *Tracker) Len() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.last)
}
