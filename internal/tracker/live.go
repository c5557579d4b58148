package tracker

import (
	"context"
	"time"

	"github.com/worktime/internal/work"
)

// Tick is one live recalculation.
type Tick struct {
	Now    time.Time
	Input  work.Input
	Result work.Result
	Err    error
}

// SnapshotFunc supplies the current form state for a tick.
type SnapshotFunc func(ctx context.Context) (work.Input, error)

// Live recalculates the snapshot every interval and hands each tick to emit,
// starting immediately. Ticks are independent; a failing tick is reported
// through Tick.Err and the loop keeps going. Live returns nil once a snapshot
// carries a check-out, or when ctx is done.
func (t *Tracker) Live(ctx context.Context, interval time.Duration, snapshot SnapshotFunc, emit func(Tick)) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.logger.Debug().Dur("interval", interval).Msg("live mode started")
	for {
		if t.tick(ctx, snapshot, emit) {
			t.logger.Debug().Msg("live mode finished: checked out")
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			t.logger.Debug().Msg("live mode cancelled")
			return nil
		}
	}
}

// tick reports whether the day is finalized.
func (t *Tracker) tick(ctx context.Context, snapshot SnapshotFunc, emit func(Tick)) bool {
	now := t.Now()
	in, err := snapshot(ctx)
	if err != nil {
		emit(Tick{Now: now, Err: err})
		return false
	}
	in.Now = now
	res, err := t.policy.Calculate(in)
	emit(Tick{Now: now, Input: in, Result: res, Err: err})
	return in.CheckOut != nil
}
