package render

import (
	"github.com/denis-giri/pdraw/pkg/types"
)

// FrameQueue is the consumer side of a decoder output queue. TryDequeue never
// blocks; it returns bufq.ErrEmpty when nothing is pending and any other
// error for real failures.
type FrameQueue interface {
	TryDequeue() (*types.DecodedFrame, error)
}

// Decoder is what a renderer needs from the decoder it is bound to.
// Implementations must be comparable (pointer types), since identity is
// checked on Detach.
type Decoder interface {
	// OpenOutputQueue creates a queue the decoder will fill with output frames
	OpenOutputQueue() (FrameQueue, error)
	// CloseOutputQueue stops filling q and releases anything still pending in it
	CloseOutputQueue(q FrameQueue) error
	// Configured reports whether the decoder has seen enough of the stream to output frames
	Configured() bool
	// ReleaseFrame hands a dequeued frame back to the decoder
	ReleaseFrame(f *types.DecodedFrame) error
}

// VideoPlaneParams describes one frame to draw on the video plane
type VideoPlaneParams struct {
	Planes       [][]byte
	Strides      []int
	Width        int
	Height       int
	SARWidth     int
	SARHeight    int
	Conversion   ColorConversion
	TargetWidth  int
	TargetHeight int
}

// VideoPlaneRenderer converts a raw decoded frame into the displayed image
type VideoPlaneRenderer interface {
	RenderFrame(p VideoPlaneParams) error
	// TexUnitCount is the number of texture units the renderer uses, starting
	// at the unit it was created with.
	TexUnitCount() int
}

// OverlayRenderer composites the telemetry HUD over the video image
type OverlayRenderer interface {
	RenderOverlay(aspectRatio float64, meta *types.Telemetry) error
}

// Session exposes the playback position and total duration in microseconds.
// Either may be 0 (not started) or types.TimeUnknown.
type Session interface {
	CurrentTime() uint64
	Duration() uint64
}

// LatencySink receives the latency report of every drawn frame
type LatencySink interface {
	RecordLatency(s types.LatencySample)
}
