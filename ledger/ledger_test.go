package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lxalgo/riskcore/gateway"
)

func newTrade(symbol, rule string) Trade {
	return Trade{
		ID:         "t-" + symbol + "-" + rule,
		Key:        Key{Symbol: symbol, Rule: rule},
		Side:       gateway.Long,
		Qty:        1,
		EntryPrice: 100,
		StopLoss:   92,
		TakeProfit: 130,
		OpenedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRegisterAndCount(t *testing.T) {
	t.Parallel()

	l := New()
	require.NoError(t, l.Register(newTrade("BTCUSDT", "momentum")))
	require.NoError(t, l.Register(newTrade("BTCUSDT", "reversion")))
	require.NoError(t, l.Register(newTrade("ETHUSDT", "momentum")))

	assert.Equal(t, 3, l.Count())
	assert.Equal(t, 3, l.CountTier(Active))
	assert.Equal(t, 0, l.CountTier(Secured))
}

func TestRegisterDuplicate(t *testing.T) {
	t.Parallel()

	l := New()
	first := newTrade("BTCUSDT", "momentum")
	require.NoError(t, l.Register(first))

	dup := first
	dup.EntryPrice = 200
	err := l.Register(dup)
	assert.ErrorIs(t, err, ErrDuplicate)

	got, ok := l.Get(first.Key)
	require.True(t, ok)
	assert.Equal(t, 100.0, got.EntryPrice, "existing entry must be untouched")
	assert.Equal(t, 1, l.Count())
}

func TestSecurePromotion(t *testing.T) {
	t.Parallel()

	l := New()
	tr := newTrade("BTCUSDT", "momentum")
	require.NoError(t, l.Register(tr))

	promoted := tr.OpenedAt.Add(2 * time.Hour)
	require.NoError(t, l.Secure(tr.Key, promoted))
	got, ok := l.Get(tr.Key)
	require.True(t, ok)
	assert.Equal(t, Secured, got.Tier)
	assert.Equal(t, promoted, got.SecuredAt)
	assert.Equal(t, 0, l.CountTier(Active))
	assert.Equal(t, 1, l.CountTier(Secured))

	// Idempotent, and the original stamp survives a repeat.
	require.NoError(t, l.Secure(tr.Key, promoted.Add(time.Hour)))
	got, _ = l.Get(tr.Key)
	assert.Equal(t, Secured, got.Tier)
	assert.Equal(t, promoted, got.SecuredAt, "first promotion time must stick")
	assert.Equal(t, 1, l.Count(), "promotion must not change total count")
}

func TestSecureMissing(t *testing.T) {
	t.Parallel()

	l := New()
	err := l.Secure(Key{Symbol: "BTCUSDT", Rule: "momentum"}, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveCompletely(t *testing.T) {
	t.Parallel()

	l := New()
	tr := newTrade("BTCUSDT", "momentum")
	require.NoError(t, l.Register(tr))
	require.NoError(t, l.Secure(tr.Key, tr.OpenedAt.Add(time.Hour)))

	l.RemoveCompletely(tr.Key)
	assert.False(t, l.Has(tr.Key))
	assert.Equal(t, 0, l.Count())

	// Removing again is a no-op.
	l.RemoveCompletely(tr.Key)
	assert.Equal(t, 0, l.Count())
}

func TestSetStop(t *testing.T) {
	t.Parallel()

	l := New()
	tr := newTrade("BTCUSDT", "momentum")
	require.NoError(t, l.Register(tr))

	require.NoError(t, l.SetStop(tr.Key, 100.1))
	got, _ := l.Get(tr.Key)
	assert.Equal(t, 100.1, got.StopLoss)

	err := l.SetStop(Key{Symbol: "none", Rule: "none"}, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAllStableOrder(t *testing.T) {
	t.Parallel()

	l := New()
	require.NoError(t, l.Register(newTrade("ETHUSDT", "momentum")))
	require.NoError(t, l.Register(newTrade("BTCUSDT", "reversion")))
	require.NoError(t, l.Register(newTrade("BTCUSDT", "momentum")))

	all := l.All()
	require.Len(t, all, 3)
	assert.Equal(t, Key{"BTCUSDT", "momentum"}, all[0].Key)
	assert.Equal(t, Key{"BTCUSDT", "reversion"}, all[1].Key)
	assert.Equal(t, Key{"ETHUSDT", "momentum"}, all[2].Key)
}

func TestTiered(t *testing.T) {
	t.Parallel()

	l := New()
	a := newTrade("BTCUSDT", "momentum")
	b := newTrade("ETHUSDT", "momentum")
	require.NoError(t, l.Register(a))
	require.NoError(t, l.Register(b))
	require.NoError(t, l.Secure(b.Key, b.OpenedAt.Add(time.Hour)))

	active := l.Tiered(Active)
	require.Len(t, active, 1)
	assert.Equal(t, a.Key, active[0].Key)

	secured := l.Tiered(Secured)
	require.Len(t, secured, 1)
	assert.Equal(t, b.Key, secured[0].Key)
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()

	l := New()
	tr := newTrade("BTCUSDT", "momentum")
	require.NoError(t, l.Register(tr))

	got, _ := l.Get(tr.Key)
	got.StopLoss = 1

	again, _ := l.Get(tr.Key)
	assert.Equal(t, 92.0, again.StopLoss)
}
