// Package monitor holds the periodic tasks that maintain trade state:
// breakeven promotion, reconciliation with the exchange, negative-PnL
// and age-based closes, the drawdown governor cycle and the cooldown
// sweep. Each task runs on its own ticker; a slow or failing task never
// blocks the others.
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lxalgo/riskcore/metrics"
)

// Task is one monitor cycle. It must respect ctx and return promptly
// when the cycle deadline expires.
type Task func(ctx context.Context) error

// Runner drives a Task on a fixed interval. A panic inside a cycle is
// recovered and logged; the loop keeps running.
type Runner struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	task     Task
	log      *zap.Logger
}

func NewRunner(name string, interval, timeout time.Duration, task Task, log *zap.Logger) *Runner {
	return &Runner{
		name:     name,
		interval: interval,
		timeout:  timeout,
		task:     task,
		log:      log.With(zap.String("monitor", name)),
	}
}

// Run blocks until ctx is cancelled. The first cycle fires after one
// full interval, not immediately, so startup recovery finishes first.
func (r *Runner) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.cycle(ctx)
		}
	}
}

func (r *Runner) cycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.MonitorCycleDuration.WithLabelValues(r.name).Observe(time.Since(start).Seconds())
		if p := recover(); p != nil {
			metrics.MonitorCycleErrors.WithLabelValues(r.name).Inc()
			r.log.Error("monitor cycle panicked", zap.Any("panic", p))
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.task(cctx); err != nil {
		metrics.MonitorCycleErrors.WithLabelValues(r.name).Inc()
		r.log.Warn("monitor cycle failed", zap.Error(err))
	}
}

// RunAll starts one goroutine per runner and returns a wait function.
func RunAll(ctx context.Context, runners ...*Runner) (wait func()) {
	done := make(chan struct{}, len(runners))
	for _, r := range runners {
		r := r
		go func() {
			r.Run(ctx)
			done <- struct{}{}
		}()
	}
	return func() {
		for range runners {
			<-done
		}
	}
}

func cycleErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
