package monitor

import (
	"time"

	"github.com/lxalgo/riskcore/config"
	"github.com/lxalgo/riskcore/gateway"
	"github.com/lxalgo/riskcore/risk"
)

// Exit labels, in the order the classifier tests them.
const (
	LabelBreakevenExit         = "breakeven_exit"
	LabelTakeProfit            = "take_profit"
	LabelStopLoss              = "stop_loss"
	LabelTrailingFromBreakeven = "trailing_from_breakeven"
	LabelTrailingStop          = "trailing_stop"
	LabelTimeBasedNegative     = "time_based_negative"
	LabelEarlyManual           = "early_manual"
	LabelUnknown               = "unknown"
)

// ExitFacts is everything known about an externally closed trade.
type ExitFacts struct {
	Entry    float64
	Exit     float64
	Side     gateway.Side
	Secured  bool
	OpenedAt time.Time
	ClosedAt time.Time
}

// Classify labels an exit from its price move and holding time. The
// rules are ordered; the first match wins. Exact stop or target fills
// rarely appear on the tape, so the price rules fire at 80% of the
// configured distance.
func Classify(f ExitFacts, cfg config.TradingConfig) string {
	delta := risk.Delta(f.Entry, f.Exit, f.Side)
	held := f.ClosedAt.Sub(f.OpenedAt)
	negWindow := time.Duration(cfg.NegativePnlCloseHours) * time.Hour

	switch {
	case delta > -cfg.SmallMovePct && delta < cfg.SmallMovePct:
		return LabelBreakevenExit
	case delta >= 0.8*cfg.TakeProfitPct:
		return LabelTakeProfit
	case delta <= -0.8*cfg.StopLossPct:
		return LabelStopLoss
	case f.Secured && delta > 0:
		return LabelTrailingFromBreakeven
	case delta >= cfg.BreakevenThresholdPct:
		return LabelTrailingStop
	case delta < 0 && held >= negWindow:
		return LabelTimeBasedNegative
	case delta < 0:
		return LabelEarlyManual
	default:
		return LabelUnknown
	}
}
