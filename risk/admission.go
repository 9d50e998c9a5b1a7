package risk

import (
	"fmt"
	"time"

	"github.com/lxalgo/riskcore/config"
	"github.com/lxalgo/riskcore/cooldown"
	"github.com/lxalgo/riskcore/ledger"
)

// Violation codes returned by admission checks.
const (
	CodeTradingHalted  = "TRADING_HALTED"
	CodeMaxTrades      = "MAX_TRADES"
	CodeSymbolCooldown = "SYMBOL_COOLDOWN"
	CodeDuplicate      = "DUPLICATE_TRADE"
)

type Violation struct {
	Code string
	Msg  string
}

// Decision is the outcome of an admission check. When Allowed, SizeUSD
// carries the notional to place after the governor's multiplier.
type Decision struct {
	Allowed    bool
	Violations []Violation
	SizeUSD    float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Reason returns the first violation code, empty when allowed.
func (d Decision) Reason() string {
	if len(d.Violations) == 0 {
		return ""
	}
	return d.Violations[0].Code
}

// Admission gates new entries. It only reads state other components
// maintain and never blocks on the network, so a signal burst cannot
// stall on admission itself.
type Admission struct {
	cfg  config.TradingConfig
	gov  *Governor
	book *ledger.Ledger
	cool *cooldown.Tracker
}

func NewAdmission(cfg config.TradingConfig, gov *Governor, book *ledger.Ledger, cool *cooldown.Tracker) *Admission {
	return &Admission{cfg: cfg, gov: gov, book: book, cool: cool}
}

// Decide runs every admission check for a candidate entry. All checks
// run even after the first failure so the caller sees the full picture.
func (a *Admission) Decide(key ledger.Key, now time.Time) Decision {
	d := Decision{Allowed: true}

	if ok, reason := a.gov.IsTradingAllowed(); !ok {
		d.add(CodeTradingHalted, reason)
	}

	if n := a.book.Count(); n >= a.cfg.MaxActiveTrades {
		d.add(CodeMaxTrades,
			fmt.Sprintf("open trades %d >= max %d", n, a.cfg.MaxActiveTrades))
	}

	if a.book.Has(key) {
		d.add(CodeDuplicate,
			fmt.Sprintf("trade already open for %s/%s", key.Symbol, key.Rule))
	}

	if !a.cool.CanTrade(key.Symbol, now) {
		d.add(CodeSymbolCooldown,
			fmt.Sprintf("%s cooling down until %s",
				key.Symbol, a.cool.NextAllowed(key.Symbol).Format(time.RFC3339)))
	}

	if d.Allowed {
		d.SizeUSD = a.cfg.BasePositionSizeUSD * a.gov.SizeMultiplier()
	}
	return d
}
