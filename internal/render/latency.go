package render

import (
	"fmt"

	"github.com/denis-giri/pdraw/internal/clock"
	"github.com/denis-giri/pdraw/internal/logger"
	"github.com/denis-giri/pdraw/pkg/types"
)

// FriendlyTime is a microsecond count split for display
type FriendlyTime struct {
	Hours   uint64
	Minutes uint64
	Seconds uint64
	Millis  uint64
}

// FriendlyTimeFromMicros splits us into hours, minutes, seconds and milliseconds
func FriendlyTimeFromMicros(us uint64) FriendlyTime {
	ms := us / 1000
	return FriendlyTime{
		Hours:   ms / 3600000,
		Minutes: ms / 60000 % 60,
		Seconds: ms / 1000 % 60,
		Millis:  ms % 1000,
	}
}

// sessionTime formats a session position or duration; 0 and
// types.TimeUnknown both display as zero.
func sessionTime(us uint64) FriendlyTime {
	if us == 0 || us == types.TimeUnknown {
		return FriendlyTime{}
	}
	return FriendlyTimeFromMicros(us)
}

func (t FriendlyTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hours, t.Minutes, t.Seconds, t.Millis)
}

// intervalMs returns (later - earlier) in milliseconds. A later timestamp
// that precedes earlier yields a negative interval rather than wrapping.
func intervalMs(later, earlier uint64) float64 {
	return float64(int64(later-earlier)) / 1000
}

// ComputeLatency derives the latency figures of f drawn at renderNow (µs)
func ComputeLatency(f *types.DecodedFrame, renderNow uint64) types.LatencySample {
	s := types.LatencySample{
		FrameNum:        f.FrameNum,
		RenderTimestamp: renderNow,
		DecodeMs:        intervalMs(f.DecoderOutputTimestamp, f.DemuxOutputTimestamp),
		RenderMs:        intervalMs(renderNow, f.DecoderOutputTimestamp),
		Telemetry:       f.Metadata,
	}
	if f.CaptureTimestamp != 0 {
		s.EndToEndMs = intervalMs(renderNow, f.CaptureTimestamp)
	}
	return s
}

// LatencyTracker reports per-frame latency after a frame is drawn. It has no
// effect on the render cycle.
type LatencyTracker struct {
	clock   clock.Clock
	session Session
	sinks   []LatencySink
	log     *logger.Module
}

// NewLatencyTracker creates a tracker. A nil clock uses the process clock;
// a nil session reports position and duration as unknown.
func NewLatencyTracker(c clock.Clock, session Session, log *logger.Module, sinks ...LatencySink) *LatencyTracker {
	if c == nil {
		c = clock.Process()
	}
	if log == nil {
		log = logger.For("Latency")
	}
	return &LatencyTracker{
		clock:   c,
		session: session,
		sinks:   sinks,
		log:     log,
	}
}

// Report computes, logs and forwards the latency of a frame just drawn
func (t *LatencyTracker) Report(f *types.DecodedFrame) types.LatencySample {
	s := ComputeLatency(f, t.clock.NowMicros())

	s.Position, s.Duration = types.TimeUnknown, types.TimeUnknown
	if t.session != nil {
		s.Position = t.session.CurrentTime()
		s.Duration = t.session.Duration()
	}

	t.log.Info("%s / %s frame #%d (decoding: %.2fms, rendering: %.2fms, est. latency: %.2fms)",
		sessionTime(s.Position), sessionTime(s.Duration), f.FrameNum,
		s.DecodeMs, s.RenderMs, s.EndToEndMs)

	for _, sink := range t.sinks {
		sink.RecordLatency(s)
	}
	return s
}
