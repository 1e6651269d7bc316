package render

import (
	"errors"

	"github.com/denis-giri/pdraw/internal/bufq"
	"github.com/denis-giri/pdraw/pkg/types"
)

// drain empties q and returns the newest frame, or nil if none was pending.
// Every older frame is released as soon as a newer one arrives, so at most
// one frame is held and display latency stays bounded by the refresh period.
// Called with c.mu held.
func (c *core) drain(dec Decoder, q FrameQueue) *types.DecodedFrame {
	var retained *types.DecodedFrame

	for {
		frame, err := q.TryDequeue()
		if err != nil {
			if !errors.Is(err, bufq.ErrEmpty) {
				c.metrics.DequeueErrors.Add(1)
				c.log.Error("Failed to get buffer from queue: %v", err)
			}
			return retained
		}
		if frame == nil {
			return retained
		}

		c.metrics.FramesDequeued.Add(1)
		if retained != nil {
			c.release(dec, retained)
			c.metrics.FramesSkipped.Add(1)
		}
		retained = frame
	}
}

// release hands f back to the decoder. Failures are logged: the frame is
// considered handled either way.
func (c *core) release(dec Decoder, f *types.DecodedFrame) {
	if err := dec.ReleaseFrame(f); err != nil {
		c.metrics.ReleaseErrors.Add(1)
		c.log.Error("Failed to release frame #%d: %v", f.FrameNum, err)
	}
}
