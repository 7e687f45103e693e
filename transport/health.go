package transport

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/cosmodirect/rntbd/rntbderr"
)

// Timestamps tracks channel activity for health probing. All marks are
// safe for concurrent use.
type Timestamps struct {
	clk            clock.Clock
	read           atomic.Int64
	writeAttempted atomic.Int64
	writeCompleted atomic.Int64
}

func newTimestamps(clk clock.Clock) *Timestamps {
	t := &Timestamps{clk: clk}
	now := clk.Now().UnixNano()
	t.read.Store(now)
	t.writeAttempted.Store(now)
	t.writeCompleted.Store(now)
	return t
}

func (t *Timestamps) markRead()           { t.read.Store(t.clk.Now().UnixNano()) }
func (t *Timestamps) markWriteAttempted() { t.writeAttempted.Store(t.clk.Now().UnixNano()) }
func (t *Timestamps) markWriteCompleted() { t.writeCompleted.Store(t.clk.Now().UnixNano()) }

// Snapshot is an immutable copy of the activity marks.
type Snapshot struct {
	LastRead           time.Time
	LastWriteAttempted time.Time
	LastWriteCompleted time.Time
}

func (t *Timestamps) Snapshot() Snapshot {
	return Snapshot{
		LastRead:           time.Unix(0, t.read.Load()),
		LastWriteAttempted: time.Unix(0, t.writeAttempted.Load()),
		LastWriteCompleted: time.Unix(0, t.writeCompleted.Load()),
	}
}

// HealthChecker decides whether a quiet channel is still alive. A nil
// return keeps the connection; anything else tears it down.
type HealthChecker interface {
	Probe(ctx context.Context, s Snapshot) error
}

const (
	defaultReadDelayLimit  = 45 * time.Second
	defaultWriteDelayLimit = 10 * time.Second
)

// defaultHealthChecker flags a channel that keeps attempting writes
// without observing reads or write completions inside its windows.
type defaultHealthChecker struct {
	clk             clock.Clock
	readDelayLimit  time.Duration
	writeDelayLimit time.Duration
}

func newDefaultHealthChecker(clk clock.Clock) defaultHealthChecker {
	return defaultHealthChecker{clk, defaultReadDelayLimit, defaultWriteDelayLimit}
}

func (h defaultHealthChecker) Probe(_ context.Context, s Snapshot) error {
	now := h.clk.Now()

	readDelay := now.Sub(s.LastRead)
	if s.LastWriteAttempted.After(s.LastRead) && readDelay > h.readDelayLimit {
		return fmt.Errorf("no reads for %s while writes are attempted: %w",
			readDelay, rntbderr.ErrUnhealthyChannel)
	}

	writeDelay := now.Sub(s.LastWriteCompleted)
	if s.LastWriteAttempted.After(s.LastWriteCompleted) && writeDelay > h.writeDelayLimit {
		return fmt.Errorf("writes not completing for %s: %w",
			writeDelay, rntbderr.ErrUnhealthyChannel)
	}
	return nil
}
