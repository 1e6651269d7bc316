package session

import (
	"sync"

	"github.com/denis-giri/pdraw/internal/clock"
	"github.com/denis-giri/pdraw/pkg/types"
)

// Playback tracks the presentation position of a stream. Position counts
// from the first presented frame; duration is types.TimeUnknown for live
// sources until SetDuration is called.
type Playback struct {
	clock clock.Clock

	mu       sync.Mutex
	started  bool
	startUs  uint64
	duration uint64
}

// NewPlayback creates a session that has not started yet
func NewPlayback(c clock.Clock) *Playback {
	if c == nil {
		c = clock.Process()
	}
	return &Playback{
		clock:    c,
		duration: types.TimeUnknown,
	}
}

// Start marks the presentation start. Later calls are ignored.
func (p *Playback) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		p.started = true
		p.startUs = p.clock.NowMicros()
	}
}

// SetDuration records the total stream duration in microseconds
func (p *Playback) SetDuration(us uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.duration = us
}

// CurrentTime returns the position in microseconds, 0 before Start. For
// streams of known duration the position is clamped to the duration.
func (p *Playback) CurrentTime() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	pos := p.clock.NowMicros() - p.startUs
	if p.duration != types.TimeUnknown && pos > p.duration {
		pos = p.duration
	}
	return pos
}

// Duration returns the stream duration or types.TimeUnknown
func (p *Playback) Duration() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// RecordLatency starts the session on the first presented frame, so the
// session can be registered as a latency sink.
func (p *Playback) RecordLatency(types.LatencySample) {
	p.Start()
}
