// Package metrics exposes the risk core's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AdmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskcore_admissions_total",
		Help: "Admission decisions by result (admitted or a violation code).",
	}, []string{"result"})

	ExitClassificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskcore_exit_classifications_total",
		Help: "Reconciled exits by classified label.",
	}, []string{"label"})

	OpenTrades = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "riskcore_open_trades",
		Help: "Tracked open trades by tier.",
	}, []string{"tier"})

	WeeklyDrawdownLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskcore_weekly_drawdown_level",
		Help: "Weekly drawdown escalation level (0, 1 or 2).",
	})

	DailyBreakerActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskcore_daily_breaker_active",
		Help: "1 while the daily circuit breaker halts trading.",
	})

	SizeMultiplier = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskcore_size_multiplier",
		Help: "Position size multiplier currently applied to entries.",
	})

	Equity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskcore_equity",
		Help: "Last account equity snapshot.",
	})

	TradesOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskcore_trades_opened_total",
		Help: "Trades admitted, filled and registered.",
	})

	NotificationsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskcore_notifications_dropped_total",
		Help: "Events discarded because the notifier buffer was full.",
	})

	TradesSecuredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskcore_trades_secured_total",
		Help: "Trades promoted to breakeven.",
	})

	MonitorCycleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskcore_monitor_cycle_errors_total",
		Help: "Monitor cycles that ended in an error, by monitor name.",
	}, []string{"monitor"})

	MonitorCycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riskcore_monitor_cycle_seconds",
		Help:    "Monitor cycle wall time.",
		Buckets: prometheus.DefBuckets,
	}, []string{"monitor"})
)

// Handler returns the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
