// Package clock provides the monotonic microsecond timebase shared by the
// decoder timestamps and the render latency report.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock returns monotonic time in microseconds
type Clock interface {
	NowMicros() uint64
}

// Monotonic counts microseconds from its creation using the runtime's
// monotonic clock reading.
type Monotonic struct {
	epoch time.Time
}

// NewMonotonic creates a Monotonic clock starting at zero now
func NewMonotonic() *Monotonic {
	return &Monotonic{epoch: time.Now()}
}

// NowMicros returns microseconds elapsed since the clock was created
func (m *Monotonic) NowMicros() uint64 {
	return uint64(time.Since(m.epoch).Microseconds())
}

var process = NewMonotonic()

// Process returns the clock shared by all components of the process
func Process() Clock {
	return process
}

// Manual is a clock whose value is set explicitly. Safe for concurrent use.
type Manual struct {
	now atomic.Uint64
}

// NewManual creates a Manual clock at us
func NewManual(us uint64) *Manual {
	m := &Manual{}
	m.now.Store(us)
	return m
}

func (m *Manual) NowMicros() uint64 { return m.now.Load() }

// Set moves the clock to us
func (m *Manual) Set(us uint64) { m.now.Store(us) }

// Advance moves the clock forward by d
func (m *Manual) Advance(d time.Duration) { m.now.Add(uint64(d.Microseconds())) }
