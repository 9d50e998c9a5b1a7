package risk

import (
	"github.com/lxalgo/riskcore/gateway"
)

// Qty converts a quote-currency notional to a base quantity at the
// given entry price. Zero when the price is not positive.
func Qty(notionalUSD, entry float64) float64 {
	if entry <= 0 {
		return 0
	}
	return notionalUSD / entry
}

// StopPrice returns the protective stop for an entry, stopPct below it
// for longs and above it for shorts.
func StopPrice(entry, stopPct float64, side gateway.Side) float64 {
	return entry * (1 - side.Sign()*stopPct)
}

// TakeProfitPrice returns the take-profit level, takePct in the
// position's favor.
func TakeProfitPrice(entry, takePct float64, side gateway.Side) float64 {
	return entry * (1 + side.Sign()*takePct)
}

// BreakevenStop returns the stop used when a trade is secured: entry
// shifted by the buffer in the position's favor, but never looser than
// the stop already in place.
func BreakevenStop(entry, bufferPct, currentStop float64, side gateway.Side) float64 {
	stop := entry * (1 + side.Sign()*bufferPct)
	if side == gateway.Long {
		if currentStop > stop {
			return currentStop
		}
		return stop
	}
	if currentStop > 0 && currentStop < stop {
		return currentStop
	}
	return stop
}

// Delta is the signed fractional move of price from entry in the
// position's favor. Positive means the position is in profit.
func Delta(entry, price float64, side gateway.Side) float64 {
	if entry <= 0 {
		return 0
	}
	return (price - entry) / entry * side.Sign()
}
