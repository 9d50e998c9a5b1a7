package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRunnerTicksUntilCancelled(t *testing.T) {
	t.Parallel()

	var cycles atomic.Int32
	r := NewRunner("test", 5*time.Millisecond, time.Second, func(ctx context.Context) error {
		cycles.Add(1)
		return nil
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	assert.GreaterOrEqual(t, cycles.Load(), int32(3))
}

func TestRunnerSurvivesPanicsAndErrors(t *testing.T) {
	t.Parallel()

	var cycles atomic.Int32
	r := NewRunner("test", 5*time.Millisecond, time.Second, func(ctx context.Context) error {
		switch cycles.Add(1) {
		case 1:
			panic("boom")
		case 2:
			return errors.New("cycle failed")
		}
		return nil
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	assert.GreaterOrEqual(t, cycles.Load(), int32(3), "loop keeps running after panic and error")
}

func TestRunnerCycleTimeout(t *testing.T) {
	t.Parallel()

	sawDeadline := make(chan bool, 1)
	r := NewRunner("test", 5*time.Millisecond, 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			select {
			case sawDeadline <- true:
			default:
			}
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	assert.True(t, <-sawDeadline, "cycle context must expire")
}

func TestRunAllStopsTogether(t *testing.T) {
	t.Parallel()

	var a, b atomic.Int32
	ra := NewRunner("a", 5*time.Millisecond, time.Second, func(ctx context.Context) error { a.Add(1); return nil }, zap.NewNop())
	rb := NewRunner("b", 5*time.Millisecond, time.Second, func(ctx context.Context) error { b.Add(1); return nil }, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	wait := RunAll(ctx, ra, rb)
	wait()

	assert.Positive(t, a.Load())
	assert.Positive(t, b.Load())
}
