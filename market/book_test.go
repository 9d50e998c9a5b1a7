package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceFreshAndStale(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	b := NewBook(5 * time.Minute)
	b.Update("BTCUSDT", 65000, now)

	p, err := b.Price("BTCUSDT", now.Add(4*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 65000.0, p)

	// Exactly at the limit is still fresh.
	_, err = b.Price("BTCUSDT", now.Add(5*time.Minute))
	require.NoError(t, err)

	_, err = b.Price("BTCUSDT", now.Add(5*time.Minute+time.Second))
	assert.ErrorIs(t, err, ErrStale)
}

func TestPriceUnknownSymbol(t *testing.T) {
	t.Parallel()

	b := NewBook(5 * time.Minute)
	_, err := b.Price("ETHUSDT", time.Now())
	assert.ErrorIs(t, err, ErrStale)
}

func TestUpdateOverwrites(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	b := NewBook(5 * time.Minute)
	b.Update("BTCUSDT", 65000, now)
	b.Update("BTCUSDT", 66000, now.Add(time.Minute))

	p, err := b.Price("BTCUSDT", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 66000.0, p)

	m, ok := b.Last("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Minute), m.At)
}
