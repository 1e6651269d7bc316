package render

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/denis-giri/pdraw/pkg/types"
)

// SurfaceState is the fixed drawing state a surface is reset to on Configure
type SurfaceState struct {
	ClearColor color.RGBA
	DepthTest  bool
	Dither     bool
	Texture2D  bool
}

// BaselineState clears to opaque black with depth test and dithering off and
// 2D texturing on.
var BaselineState = SurfaceState{
	ClearColor: color.RGBA{A: 0xff},
	Texture2D:  true,
}

// Surface is the drawing target a SurfaceRenderer configures
type Surface interface {
	Apply(state SurfaceState)
	Clear()
	SetViewport(x, y, width, height int)
}

// DisplayBinder is implemented by surfaces that need the platform display
// handle passed to Configure.
type DisplayBinder interface {
	BindDisplay(display any)
}

// Presenter is implemented by surfaces that publish a finished frame
// separately from drawing it, like a buffer swap. SurfaceRenderer presents
// once per cycle, after both the video plane and the HUD drew.
type Presenter interface {
	Present()
}

// Texture units below FirstTexUnit are left to the host application
const FirstTexUnit = 1

// VideoFactory creates the video plane renderer using units from firstTexUnit
type VideoFactory func(firstTexUnit int) (VideoPlaneRenderer, error)

// OverlayFactory creates the overlay renderer using units from firstTexUnit
type OverlayFactory func(firstTexUnit int) (OverlayRenderer, error)

// SurfaceRenderer draws the newest decoded frame and its telemetry HUD onto
// a Surface.
type SurfaceRenderer struct {
	core

	surface Surface
	video   VideoPlaneRenderer
	overlay OverlayRenderer
	latency *LatencyTracker
}

var _ Renderer = (*SurfaceRenderer)(nil)

// NewSurfaceRenderer creates the sub-renderers in order (video, then overlay
// on the texture units after the video's). If a later step fails, the ones
// already created are closed before returning. Either factory may be nil to
// skip that layer.
func NewSurfaceRenderer(surface Surface, newVideo VideoFactory, newOverlay OverlayFactory, opts Options) (*SurfaceRenderer, error) {
	if surface == nil {
		return nil, errors.New("surface is required")
	}
	opts = opts.withDefaults("SurfaceRenderer")

	r := &SurfaceRenderer{surface: surface}
	r.core.init(opts)

	hudUnit := FirstTexUnit
	if newVideo != nil {
		video, err := newVideo(FirstTexUnit)
		if err != nil {
			return nil, fmt.Errorf("failed to create video plane renderer: %w", err)
		}
		r.video = video
		hudUnit += video.TexUnitCount()
	}

	if newOverlay != nil {
		overlay, err := newOverlay(hudUnit)
		if err != nil {
			closeQuietly(r.video)
			return nil, fmt.Errorf("failed to create overlay renderer: %w", err)
		}
		r.overlay = overlay
	}

	sinks := append([]LatencySink{opts.Metrics}, opts.Sinks...)
	r.latency = NewLatencyTracker(opts.Clock, opts.Session, opts.Logger, sinks...)

	return r, nil
}

// Configure stores the viewport and resets the surface to the baseline state
func (r *SurfaceRenderer) Configure(vp types.Viewport, display any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setViewport(vp, display)
	if b, ok := r.surface.(DisplayBinder); ok {
		b.BindDisplay(display)
	}
	r.surface.Apply(BaselineState)
	r.surface.Clear()
	r.surface.SetViewport(vp.RenderX, vp.RenderY, vp.RenderWidth, vp.RenderHeight)

	r.log.Info("Configured window %dx%d, render region %dx%d at (%d,%d)",
		vp.WindowWidth, vp.WindowHeight, vp.RenderWidth, vp.RenderHeight, vp.RenderX, vp.RenderY)
}

func (r *SurfaceRenderer) RenderCycle(ctx context.Context, _ time.Duration) error {
	return r.renderCycle(ctx, r.draw)
}

// draw renders the video plane, then the HUD, presents, then reports
// latency. A failure stops the remaining steps for this frame only, so the
// last complete frame stays on screen.
func (r *SurfaceRenderer) draw(f *types.DecodedFrame, vp types.Viewport) {
	if r.video != nil {
		err := r.video.RenderFrame(VideoPlaneParams{
			Planes:       f.Planes,
			Strides:      f.Strides,
			Width:        f.Width,
			Height:       f.Height,
			SARWidth:     f.SARWidth,
			SARHeight:    f.SARHeight,
			Conversion:   r.conversionFor(f.ColorFormat),
			TargetWidth:  vp.RenderWidth,
			TargetHeight: vp.RenderHeight,
		})
		if err != nil {
			r.metrics.RenderErrors.Add(1)
			r.log.Error("Failed to render frame #%d: %v", f.FrameNum, err)
			return
		}
	}

	if r.overlay != nil {
		if err := r.overlay.RenderOverlay(f.AspectRatio(), &f.Metadata); err != nil {
			r.metrics.RenderErrors.Add(1)
			r.log.Error("Failed to render HUD for frame #%d: %v", f.FrameNum, err)
			return
		}
	}

	if p, ok := r.surface.(Presenter); ok {
		p.Present()
	}
	r.metrics.FramesRendered.Add(1)
	r.latency.Report(f)
}

// Close detaches the decoder, clears the surface and releases the
// sub-renderers. It is safe to call more than once.
func (r *SurfaceRenderer) Close() error {
	if !r.shutdown() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.surface.Clear()

	err := errors.Join(closeErr(r.overlay), closeErr(r.video))
	r.video, r.overlay = nil, nil
	return err
}

func closeErr(v any) error {
	if c, ok := v.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func closeQuietly(v any) {
	_ = closeErr(v)
}
