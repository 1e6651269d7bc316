package render

import (
	"context"
	"time"
)

// DefaultIdleInterval is how long a renderer yields when it has nothing to draw
const DefaultIdleInterval = 5 * time.Millisecond

// Pacer decides how a renderer waits when a cycle produced no frame
type Pacer interface {
	Idle(ctx context.Context) error
}

// SleepPacer waits a fixed interval
type SleepPacer struct {
	Interval time.Duration
}

func (p SleepPacer) Idle(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultIdleInterval
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WakePacer waits at most Interval but returns as soon as Wake fires, so a
// renderer polling a decoder that signals new output reacts without waiting
// out the full interval.
type WakePacer struct {
	Interval time.Duration
	Wake     <-chan struct{}
}

func (p WakePacer) Idle(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultIdleInterval
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.Wake:
		return nil
	case <-timer.C:
		return nil
	}
}
