package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(h, m int) time.Time {
	return time.Date(2024, 3, 5, h, m, 0, 0, time.UTC)
}

func TestBlockExpiry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opened  time.Time
		now     time.Time
		canOpen bool
	}{
		{"just opened", at(9, 0), at(9, 1), false},
		{"mid block", at(9, 0), at(11, 59), false},
		{"block boundary", at(9, 0), at(12, 0), true},
		{"after boundary", at(9, 0), at(13, 0), true},
		{"opened one minute before boundary", at(11, 59), at(12, 0), true},
		{"opened right after boundary", at(12, 1), at(15, 59), false},
		{"opened right after boundary next block", at(12, 1), at(16, 0), true},
		{"opened at boundary belongs to new block", at(12, 0), at(15, 59), false},
		{"crossing midnight", at(23, 30), time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := New(4, 0, 24*time.Hour)
			tr.Record("BTCUSDT", tt.opened)
			assert.Equal(t, tt.canOpen, tr.CanTrade("BTCUSDT", tt.now))
		})
	}
}

func TestUnknownSymbolTradesFreely(t *testing.T) {
	t.Parallel()

	tr := New(4, 0, 24*time.Hour)
	assert.True(t, tr.CanTrade("ETHUSDT", at(10, 0)))
	assert.True(t, tr.NextAllowed("ETHUSDT").IsZero())
}

func TestNextAllowed(t *testing.T) {
	t.Parallel()

	tr := New(4, 0, 24*time.Hour)
	tr.Record("BTCUSDT", at(9, 17))
	assert.Equal(t, at(12, 0), tr.NextAllowed("BTCUSDT"))
}

func TestAnchorOffset(t *testing.T) {
	t.Parallel()

	// Blocks anchored at 02:00 UTC: 02-06, 06-10, ...
	tr := New(4, 2, 24*time.Hour)
	tr.Record("BTCUSDT", at(5, 30))
	assert.Equal(t, at(6, 0), tr.NextAllowed("BTCUSDT"))

	// 01:00 falls in the block that started at 22:00 the day before.
	tr.Record("ETHUSDT", time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC))
	assert.Equal(t, at(2, 0), tr.NextAllowed("ETHUSDT"))
}

func TestRecordKeepsLatest(t *testing.T) {
	t.Parallel()

	tr := New(4, 0, 24*time.Hour)
	tr.Record("BTCUSDT", at(9, 0))
	tr.Record("BTCUSDT", at(13, 0))
	assert.Equal(t, at(16, 0), tr.NextAllowed("BTCUSDT"))

	// Stale recording does not roll the clock back.
	tr.Record("BTCUSDT", at(8, 0))
	assert.Equal(t, at(16, 0), tr.NextAllowed("BTCUSDT"))
}

func TestSweep(t *testing.T) {
	t.Parallel()

	tr := New(4, 0, 24*time.Hour)
	tr.Record("OLD", at(9, 0).Add(-30*time.Hour))
	tr.Record("FRESH", at(9, 0))

	removed := tr.Sweep(at(10, 0))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, tr.Len())
	assert.True(t, tr.CanTrade("OLD", at(10, 0)))
	assert.False(t, tr.CanTrade("FRESH", at(10, 0)))
}

func TestSweepNeverCutsRunningCooldown(t *testing.T) {
	t.Parallel()

	// Retention shorter than a block: the record must survive until
	// its block ends and the retention has run out on top of that.
	tr := New(4, 0, time.Hour)
	tr.Record("BTCUSDT", at(9, 0))

	assert.Equal(t, 0, tr.Sweep(at(10, 30)))
	assert.False(t, tr.CanTrade("BTCUSDT", at(10, 30)))

	// Block ends 12:00; within the retention tail it is still kept.
	assert.Equal(t, 0, tr.Sweep(at(12, 30)))
	assert.True(t, tr.CanTrade("BTCUSDT", at(12, 30)))

	assert.Equal(t, 1, tr.Sweep(at(13, 1)))
	assert.Equal(t, 0, tr.Len())
}
