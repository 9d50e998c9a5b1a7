package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lxalgo/riskcore/config"
	"github.com/lxalgo/riskcore/gateway"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Trading
	opened := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		exit    float64
		side    gateway.Side
		secured bool
		held    time.Duration
		want    string
	}{
		{"flat close", 100.5, gateway.Long, false, time.Hour, LabelBreakevenExit},
		{"flat close secured", 99.6, gateway.Long, true, time.Hour, LabelBreakevenExit},
		{"full target", 130, gateway.Long, false, time.Hour, LabelTakeProfit},
		{"near target", 125, gateway.Long, false, time.Hour, LabelTakeProfit},
		{"full stop", 92, gateway.Long, false, time.Hour, LabelStopLoss},
		{"near stop", 93, gateway.Long, false, time.Hour, LabelStopLoss},
		{"secured trail", 104, gateway.Long, true, time.Hour, LabelTrailingFromBreakeven},
		{"unsecured trail past threshold", 110, gateway.Long, false, time.Hour, LabelTrailingStop},
		{"small loss held long", 97, gateway.Long, false, 9 * time.Hour, LabelTimeBasedNegative},
		{"small loss closed early", 97, gateway.Long, false, 2 * time.Hour, LabelEarlyManual},
		{"modest gain unsecured", 104, gateway.Long, false, time.Hour, LabelUnknown},
		{"short at target", 70, gateway.Short, false, time.Hour, LabelTakeProfit},
		{"short stopped", 108, gateway.Short, false, time.Hour, LabelStopLoss},
		{"short flat", 99.5, gateway.Short, false, time.Hour, LabelBreakevenExit},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(ExitFacts{
				Entry:    100,
				Exit:     tt.exit,
				Side:     tt.side,
				Secured:  tt.secured,
				OpenedAt: opened,
				ClosedAt: opened.Add(tt.held),
			}, cfg)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyOrderMatters(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Trading
	opened := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	// A secured trade closed at the full target is a take profit, not a
	// trail from breakeven.
	got := Classify(ExitFacts{
		Entry: 100, Exit: 130, Side: gateway.Long, Secured: true,
		OpenedAt: opened, ClosedAt: opened.Add(time.Hour),
	}, cfg)
	assert.Equal(t, LabelTakeProfit, got)

	// A tiny move wins over everything, even secured trades.
	got = Classify(ExitFacts{
		Entry: 100, Exit: 100.2, Side: gateway.Long, Secured: true,
		OpenedAt: opened, ClosedAt: opened.Add(20 * time.Hour),
	}, cfg)
	assert.Equal(t, LabelBreakevenExit, got)
}
