package render

import (
	"context"
	"sync"
	"time"

	"github.com/denis-giri/pdraw/internal/clock"
	"github.com/denis-giri/pdraw/internal/logger"
	"github.com/denis-giri/pdraw/internal/metrics"
	"github.com/denis-giri/pdraw/pkg/types"
)

// Renderer presents decoded frames at display cadence. Attach, Detach,
// Configure and RenderCycle may be called from different goroutines; they are
// serialized internally. Detach must not be called from inside a sub-renderer.
type Renderer interface {
	Attach(d Decoder) error
	Detach(d Decoder) error
	Configure(vp types.Viewport, display any)
	// RenderCycle drains the attached decoder and draws the newest frame.
	// timeout is reserved for a blocking dequeue and is currently unused.
	RenderCycle(ctx context.Context, timeout time.Duration) error
	Close() error
}

// Options carries the collaborators shared by all renderer variants
type Options struct {
	Metrics *metrics.Metrics
	Pacer   Pacer
	Clock   clock.Clock
	Session Session
	Sinks   []LatencySink
	Logger  *logger.Module
}

func (o Options) withDefaults(module string) Options {
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	if o.Pacer == nil {
		o.Pacer = SleepPacer{Interval: DefaultIdleInterval}
	}
	if o.Clock == nil {
		o.Clock = clock.Process()
	}
	if o.Logger == nil {
		o.Logger = logger.For(module)
	}
	return o
}

// drawFunc draws a retained frame into the configured viewport
type drawFunc func(f *types.DecodedFrame, vp types.Viewport)

// core holds the state every renderer variant shares: the decoder
// attachment, the viewport and the drain/release discipline.
type core struct {
	mu       sync.Mutex
	att      attachment
	viewport types.Viewport
	display  any
	closed   bool

	pacer   Pacer
	metrics *metrics.Metrics
	log     *logger.Module

	unknownFormats map[types.ColorFormat]struct{}
}

func (c *core) init(opts Options) {
	c.pacer = opts.Pacer
	c.metrics = opts.Metrics
	c.log = opts.Logger
	c.unknownFormats = make(map[types.ColorFormat]struct{})
}

func (c *core) Attach(d Decoder) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if err := c.att.attach(d); err != nil {
		c.log.Error("Attach failed: %v", err)
		return err
	}
	c.log.Info("Decoder attached")
	return nil
}

func (c *core) Detach(d Decoder) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.att.detach(d, c.log); err != nil {
		c.log.Error("Detach failed: %v", err)
		return err
	}
	c.log.Info("Decoder detached")
	return nil
}

// Attached reports whether a decoder is currently bound
func (c *core) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.att.bound()
}

// Viewport returns the configured viewport
func (c *core) Viewport() types.Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport
}

func (c *core) setViewport(vp types.Viewport, display any) {
	c.viewport = vp
	c.display = display
}

// cycle runs one drain/draw/release pass under the renderer lock and reports
// whether nothing was drained, in which case the caller should idle.
func (c *core) cycle(draw drawFunc) (idle bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrClosed
	}
	c.metrics.Cycles.Add(1)

	if !c.att.bound() || !c.att.decoder.Configured() {
		return true, nil
	}

	dec := c.att.decoder
	frame := c.drain(dec, c.att.queue)
	if frame == nil {
		return true, nil
	}
	defer c.release(dec, frame)

	if !c.viewport.Drawable() {
		c.metrics.FramesSuppressed.Add(1)
		return false, nil
	}
	if draw != nil {
		draw(frame, c.viewport)
	}
	return false, nil
}

// renderCycle is the RenderCycle body shared by the variants. The idle wait
// happens outside the lock so Detach is never held up by pacing.
func (c *core) renderCycle(ctx context.Context, draw drawFunc) error {
	idle, err := c.cycle(draw)
	if err != nil {
		return err
	}
	if idle {
		c.metrics.IdleCycles.Add(1)
		if err := c.pacer.Idle(ctx); err != nil {
			return err
		}
	}
	return nil
}

// conversionFor resolves the conversion for a frame and reports each
// unsupported format once. Called with c.mu held.
func (c *core) conversionFor(f types.ColorFormat) ColorConversion {
	conv, ok := ConversionFor(f)
	if !ok {
		c.metrics.UnknownColorFormats.Add(1)
		if _, seen := c.unknownFormats[f]; !seen {
			c.unknownFormats[f] = struct{}{}
			c.log.Warn("Unsupported color format %s, rendering as %s", f, conv)
		}
	}
	return conv
}

// shutdown marks the core closed and detaches any bound decoder so its
// output queue, and every frame still pending in it, goes back to the decoder.
// It reports false if the core was already closed.
func (c *core) shutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.closed = true
	if c.att.bound() {
		_ = c.att.detach(c.att.decoder, c.log)
		c.log.Info("Decoder detached on close")
	}
	return true
}
