// Package notify publishes trade lifecycle and risk events.
package notify

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lxalgo/riskcore/metrics"
)

// Kind classifies an event.
type Kind string

const (
	TradeOpened    Kind = "trade_opened"
	TradeSecured   Kind = "trade_secured"
	TradeClosed    Kind = "trade_closed"
	BreakerTripped Kind = "breaker_tripped"
	WeeklyLevel    Kind = "weekly_level"
	BaselineReset  Kind = "baseline_reset"
)

// Event is one notification. Fields carries free-form detail.
type Event struct {
	Kind   Kind
	Symbol string
	Rule   string
	At     time.Time
	Text   string
	Fields map[string]any
}

// Notifier delivers events. Publish must never block the caller for
// long; slow sinks wrap themselves in Async.
type Notifier interface {
	Publish(Event)
}

// Logger writes every event to the structured log. It is the default
// sink and the fallback when no external channel is configured.
type Logger struct {
	log *zap.Logger
}

func NewLogger(log *zap.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Publish(e Event) {
	fields := []zap.Field{
		zap.String("kind", string(e.Kind)),
		zap.String("symbol", e.Symbol),
		zap.String("rule", e.Rule),
		zap.Time("at", e.At),
	}
	for k, v := range e.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	l.log.Info(e.Text, fields...)
}

// Async decouples publishers from a slow sink with a bounded buffer.
// Events are dropped, not queued unboundedly, when the sink falls
// behind; a risk halt must never wait on a notification channel.
type Async struct {
	ch      chan Event
	sink    Notifier
	log     *zap.Logger
	done    chan struct{}
	dropped atomic.Uint64
}

func NewAsync(sink Notifier, buffer int, log *zap.Logger) *Async {
	a := &Async{
		ch:   make(chan Event, buffer),
		sink: sink,
		log:  log,
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	for e := range a.ch {
		a.sink.Publish(e)
	}
	close(a.done)
}

func (a *Async) Publish(e Event) {
	select {
	case a.ch <- e:
	default:
		a.dropped.Add(1)
		metrics.NotificationsDroppedTotal.Inc()
		a.log.Warn("notification dropped, buffer full",
			zap.String("kind", string(e.Kind)),
			zap.String("symbol", e.Symbol))
	}
}

// Dropped returns how many events were discarded on a full buffer.
func (a *Async) Dropped() uint64 { return a.dropped.Load() }

// Close drains the buffer and stops the worker.
func (a *Async) Close() {
	close(a.ch)
	<-a.done
}
