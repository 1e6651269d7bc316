package render

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/denis-giri/pdraw/pkg/types"
)

func TestLatestFrameWins(t *testing.T) {
	h := newHarness(t)
	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	for n := uint64(1); n <= 5; n++ {
		f := testFrame(n)
		f.Width = int(n) * 2 // tag the draw call with the frame
		h.decoder.push(t, f)
	}

	if err := h.renderer.RenderCycle(context.Background(), 0); err != nil {
		t.Fatalf("RenderCycle: %v", err)
	}

	if len(h.video.calls) != 1 {
		t.Fatalf("video plane drawn %d times, want 1", len(h.video.calls))
	}
	if got := h.video.calls[0].Width; got != 10 {
		t.Errorf("drew frame with width %d, want frame 5 (width 10)", got)
	}
	for n := uint64(1); n <= 5; n++ {
		if c := h.decoder.releaseCount(n); c != 1 {
			t.Errorf("frame %d released %d times, want 1", n, c)
		}
	}

	want := []string{
		"release F1", "release F2", "release F3", "release F4",
		"draw 10x2",
		"release F5",
	}
	if got := h.log.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("event order = %v, want %v", got, want)
	}

	if got := h.metrics.FramesSkipped.Load(); got != 4 {
		t.Errorf("FramesSkipped = %d, want 4", got)
	}
	if h.pacer.calls.Load() != 0 {
		t.Error("renderer idled on a cycle that drew a frame")
	}
}

func TestAttachExclusive(t *testing.T) {
	h := newHarness(t)
	a := h.decoder
	b := newFakeDecoder(nil)

	if err := h.renderer.Attach(a); err != nil {
		t.Fatalf("Attach(A): %v", err)
	}
	if err := h.renderer.Attach(b); !errors.Is(err, ErrAlreadyAttached) {
		t.Fatalf("Attach(B) = %v, want ErrAlreadyAttached", err)
	}
	if h.renderer.att.decoder != Decoder(a) {
		t.Error("attachment changed after rejected Attach")
	}
}

func TestAttachNil(t *testing.T) {
	h := newHarness(t)
	if err := h.renderer.Attach(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Attach(nil) = %v, want ErrInvalidArgument", err)
	}
	if err := h.renderer.Detach(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Detach(nil) = %v, want ErrInvalidArgument", err)
	}
}

func TestAttachQueueCreationFailed(t *testing.T) {
	h := newHarness(t)
	cause := errors.New("no more queues")
	h.decoder.openErr = cause

	err := h.renderer.Attach(h.decoder)
	if !errors.Is(err, ErrQueueCreationFailed) || !errors.Is(err, cause) {
		t.Fatalf("Attach = %v, want ErrQueueCreationFailed wrapping cause", err)
	}
	if h.renderer.Attached() {
		t.Error("renderer attached after queue creation failure")
	}
}

func TestDetachIdentity(t *testing.T) {
	h := newHarness(t)
	a := h.decoder
	b := newFakeDecoder(nil)

	if err := h.renderer.Attach(a); err != nil {
		t.Fatalf("Attach(A): %v", err)
	}
	if err := h.renderer.Detach(b); !errors.Is(err, ErrIdentityMismatch) {
		t.Fatalf("Detach(B) = %v, want ErrIdentityMismatch", err)
	}
	if !h.renderer.Attached() {
		t.Fatal("attachment cleared by mismatched Detach")
	}
	if err := h.renderer.Detach(a); err != nil {
		t.Fatalf("Detach(A): %v", err)
	}
	if h.renderer.Attached() {
		t.Error("still attached after Detach(A)")
	}
	if h.renderer.att.queue != nil {
		t.Error("queue handle kept after Detach")
	}
}

func TestDetachClearsEvenWhenQueueRemovalFails(t *testing.T) {
	h := newHarness(t)
	h.decoder.closeErr = errors.New("busy")

	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := h.renderer.Detach(h.decoder); err != nil {
		t.Fatalf("Detach = %v, want nil", err)
	}
	if h.renderer.Attached() {
		t.Error("attachment kept after failed queue removal")
	}
}

func TestNoDecoderIdles(t *testing.T) {
	h := newHarness(t)

	if err := h.renderer.RenderCycle(context.Background(), 0); err != nil {
		t.Fatalf("RenderCycle: %v", err)
	}
	if len(h.video.calls) != 0 {
		t.Error("drew without a decoder")
	}
	if h.pacer.calls.Load() != 1 {
		t.Errorf("pacer called %d times, want 1", h.pacer.calls.Load())
	}
}

func TestUnconfiguredDecoderIdles(t *testing.T) {
	h := newHarness(t)
	h.decoder.configured = false
	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	h.decoder.push(t, testFrame(1))

	if err := h.renderer.RenderCycle(context.Background(), 0); err != nil {
		t.Fatalf("RenderCycle: %v", err)
	}
	if h.pacer.calls.Load() != 1 {
		t.Errorf("pacer called %d times, want 1", h.pacer.calls.Load())
	}
	if h.decoder.queue.Len() != 1 {
		t.Error("dequeued from an unconfigured decoder")
	}
}

func TestEmptyQueueIdles(t *testing.T) {
	h := newHarness(t)
	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := h.renderer.RenderCycle(context.Background(), 0); err != nil {
		t.Fatalf("RenderCycle: %v", err)
	}
	if h.pacer.calls.Load() != 1 {
		t.Errorf("pacer called %d times, want 1", h.pacer.calls.Load())
	}
	if h.metrics.DequeueErrors.Load() != 0 {
		t.Error("empty queue counted as a dequeue error")
	}
}

func TestSuppressedRegionStillReleases(t *testing.T) {
	h := newHarness(t)
	h.renderer.Configure(types.Viewport{WindowWidth: 640, WindowHeight: 480, RenderWidth: 0, RenderHeight: 480}, nil)
	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	h.decoder.push(t, testFrame(1))

	if err := h.renderer.RenderCycle(context.Background(), 0); err != nil {
		t.Fatalf("RenderCycle: %v", err)
	}
	if len(h.video.calls) != 0 {
		t.Error("drew into an empty region")
	}
	if c := h.decoder.releaseCount(1); c != 1 {
		t.Errorf("frame released %d times, want 1", c)
	}
	if h.metrics.FramesSuppressed.Load() != 1 {
		t.Errorf("FramesSuppressed = %d, want 1", h.metrics.FramesSuppressed.Load())
	}
}

func TestReleaseOnVideoFailure(t *testing.T) {
	h := newHarness(t)
	h.video.err = errors.New("texture upload failed")
	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	h.decoder.push(t, testFrame(1))

	if err := h.renderer.RenderCycle(context.Background(), 0); err != nil {
		t.Fatalf("RenderCycle = %v, want nil", err)
	}
	if c := h.decoder.releaseCount(1); c != 1 {
		t.Errorf("frame released %d times, want 1", c)
	}
	if len(h.overlay.aspects) != 0 {
		t.Error("HUD drawn after video plane failure")
	}
	if len(h.sink.samples) != 0 {
		t.Error("latency reported for a failed frame")
	}
	if h.surface.presents != 0 {
		t.Error("frame presented after video plane failure")
	}
	if h.metrics.RenderErrors.Load() != 1 {
		t.Errorf("RenderErrors = %d, want 1", h.metrics.RenderErrors.Load())
	}
}

func TestReleaseOnOverlayFailure(t *testing.T) {
	h := newHarness(t)
	h.overlay.err = errors.New("hud failed")
	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	h.decoder.push(t, testFrame(1))

	if err := h.renderer.RenderCycle(context.Background(), 0); err != nil {
		t.Fatalf("RenderCycle = %v, want nil", err)
	}
	if c := h.decoder.releaseCount(1); c != 1 {
		t.Errorf("frame released %d times, want 1", c)
	}
	if h.metrics.FramesRendered.Load() != 0 {
		t.Error("frame counted as rendered after HUD failure")
	}
	if h.surface.presents != 0 {
		t.Error("frame without HUD presented")
	}
}

func TestPresentOncePerDrawnFrame(t *testing.T) {
	h := newHarness(t)
	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	h.decoder.push(t, testFrame(1), testFrame(2))

	for i := 0; i < 2; i++ {
		if err := h.renderer.RenderCycle(context.Background(), 0); err != nil {
			t.Fatalf("RenderCycle: %v", err)
		}
	}
	if h.surface.presents != 1 {
		t.Errorf("presents = %d, want 1 for one drawn frame", h.surface.presents)
	}
}

func TestReleaseFailureDoesNotStopPipeline(t *testing.T) {
	h := newHarness(t)
	h.decoder.releaseErr = errors.New("pool corrupted")
	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	for n := uint64(1); n <= 3; n++ {
		h.decoder.push(t, testFrame(n))
		if err := h.renderer.RenderCycle(context.Background(), 0); err != nil {
			t.Fatalf("cycle %d: %v", n, err)
		}
	}
	if len(h.video.calls) != 3 {
		t.Errorf("drew %d frames, want 3", len(h.video.calls))
	}
	if h.metrics.ReleaseErrors.Load() != 3 {
		t.Errorf("ReleaseErrors = %d, want 3", h.metrics.ReleaseErrors.Load())
	}
}

type failingQueue struct{ err error }

func (q failingQueue) TryDequeue() (*types.DecodedFrame, error) { return nil, q.err }

type failingQueueDecoder struct{ *fakeDecoder }

func (d *failingQueueDecoder) OpenOutputQueue() (FrameQueue, error) {
	return failingQueue{err: errors.New("decoder stalled")}, nil
}

func (d *failingQueueDecoder) CloseOutputQueue(FrameQueue) error { return nil }

func TestDequeueFailureIsAbsorbed(t *testing.T) {
	h := newHarness(t)
	dec := &failingQueueDecoder{fakeDecoder: newFakeDecoder(nil)}
	if err := h.renderer.Attach(dec); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := h.renderer.RenderCycle(context.Background(), 0); err != nil {
		t.Fatalf("RenderCycle = %v, want nil", err)
	}
	if h.metrics.DequeueErrors.Load() != 1 {
		t.Errorf("DequeueErrors = %d, want 1", h.metrics.DequeueErrors.Load())
	}
	if h.pacer.calls.Load() != 1 {
		t.Error("renderer did not idle after a dequeue failure")
	}
}

func TestDrawParameters(t *testing.T) {
	h := newHarness(t)
	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	f := testFrame(1)
	f.ColorFormat = types.ColorFormatYUV420SemiPlanar
	f.Width, f.Height = 1280, 720
	f.SARWidth, f.SARHeight = 4, 3
	h.decoder.push(t, f)

	if err := h.renderer.RenderCycle(context.Background(), 0); err != nil {
		t.Fatalf("RenderCycle: %v", err)
	}

	p := h.video.calls[0]
	if p.Conversion != ConversionYUV420SemiPlanarToRGB {
		t.Errorf("conversion = %s, want NV12", p.Conversion)
	}
	if p.TargetWidth != 640 || p.TargetHeight != 480 {
		t.Errorf("target = %dx%d, want 640x480", p.TargetWidth, p.TargetHeight)
	}
	if p.SARWidth != 4 || p.SARHeight != 3 {
		t.Errorf("SAR = %d:%d, want 4:3", p.SARWidth, p.SARHeight)
	}
	wantAspect := 1280.0 / 720.0 * 4.0 / 3.0
	if got := h.overlay.aspects[0]; math.Abs(got-wantAspect) > 1e-9 {
		t.Errorf("HUD aspect = %v, want %v", got, wantAspect)
	}
}

func TestUnknownFormatRendersAsPlanar(t *testing.T) {
	h := newHarness(t)
	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	for n := uint64(1); n <= 2; n++ {
		f := testFrame(n)
		f.ColorFormat = types.ColorFormat(99)
		h.decoder.push(t, f)
		if err := h.renderer.RenderCycle(context.Background(), 0); err != nil {
			t.Fatalf("RenderCycle: %v", err)
		}
	}
	for i, p := range h.video.calls {
		if p.Conversion != ConversionYUV420PlanarToRGB {
			t.Errorf("call %d conversion = %s, want planar", i, p.Conversion)
		}
	}
	if h.metrics.UnknownColorFormats.Load() != 2 {
		t.Errorf("UnknownColorFormats = %d, want 2", h.metrics.UnknownColorFormats.Load())
	}
	if len(h.renderer.unknownFormats) != 1 {
		t.Errorf("tracked %d unknown formats, want 1", len(h.renderer.unknownFormats))
	}
}

func TestLatencyReportedAfterDraw(t *testing.T) {
	h := newHarness(t)
	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	f := testFrame(1)
	f.DemuxOutputTimestamp = 200000
	f.DecoderOutputTimestamp = 201000
	f.CaptureTimestamp = 200500
	h.clock.Set(201500)
	h.decoder.push(t, f)

	if err := h.renderer.RenderCycle(context.Background(), 0); err != nil {
		t.Fatalf("RenderCycle: %v", err)
	}
	if len(h.sink.samples) != 1 {
		t.Fatalf("got %d latency samples, want 1", len(h.sink.samples))
	}
	s := h.sink.samples[0]
	if s.DecodeMs != 1.0 || s.RenderMs != 0.5 || s.EndToEndMs != 1.0 {
		t.Errorf("latency = %+v", s)
	}
	if d, _, _ := h.metrics.LastLatency(); d != 1.0 {
		t.Errorf("metrics decode latency = %v, want 1.0", d)
	}
}

func TestConfigureAppliesBaseline(t *testing.T) {
	h := newHarness(t)
	display := struct{ name string }{"egl"}
	h.renderer.Configure(types.Viewport{WindowWidth: 800, WindowHeight: 600, RenderX: 10, RenderY: 20, RenderWidth: 320, RenderHeight: 240}, display)

	last := h.surface.states[len(h.surface.states)-1]
	if last != BaselineState {
		t.Errorf("surface state = %+v, want baseline", last)
	}
	if last.DepthTest || last.Dither || !last.Texture2D {
		t.Errorf("baseline state flags wrong: %+v", last)
	}
	vp := h.surface.viewports[len(h.surface.viewports)-1]
	if vp != [4]int{10, 20, 320, 240} {
		t.Errorf("viewport = %v", vp)
	}
	if h.surface.display != display {
		t.Error("display handle not bound")
	}
	if got := h.renderer.Viewport(); got.RenderWidth != 320 {
		t.Errorf("stored viewport = %+v", got)
	}
}

func TestTexUnitPartition(t *testing.T) {
	h := newHarness(t)
	if want := FirstTexUnit + h.video.units; h.overlay.unit != want {
		t.Errorf("overlay first unit = %d, want %d", h.overlay.unit, want)
	}
}

func TestOverlayFactoryFailureClosesVideo(t *testing.T) {
	video := &fakeVideo{}
	_, err := NewSurfaceRenderer(&fakeSurface{},
		func(int) (VideoPlaneRenderer, error) { return video, nil },
		func(int) (OverlayRenderer, error) { return nil, errors.New("no font") },
		Options{Pacer: &countingPacer{}})
	if err == nil {
		t.Fatal("NewSurfaceRenderer succeeded with failing overlay factory")
	}
	if !video.closed {
		t.Error("video plane renderer leaked after overlay failure")
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	h := newHarness(t)
	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	h.decoder.push(t, testFrame(1), testFrame(2))

	if err := h.renderer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if h.renderer.Attached() {
		t.Error("decoder still attached after Close")
	}
	if h.decoder.releaseCount(1) != 1 || h.decoder.releaseCount(2) != 1 {
		t.Error("pending frames not released on Close")
	}
	if !h.video.closed || !h.overlay.closed {
		t.Error("sub-renderers not closed")
	}
	if err := h.renderer.RenderCycle(context.Background(), 0); !errors.Is(err, ErrClosed) {
		t.Errorf("RenderCycle after Close = %v, want ErrClosed", err)
	}
	if err := h.renderer.Attach(h.decoder); !errors.Is(err, ErrClosed) {
		t.Errorf("Attach after Close = %v, want ErrClosed", err)
	}
	if err := h.renderer.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestDetachRacingCycles(t *testing.T) {
	h := newHarness(t)
	if err := h.renderer.Attach(h.decoder); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	const frames = 200
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			_ = h.renderer.RenderCycle(ctx, 0)
		}
	}()

	for n := uint64(1); n <= frames; n++ {
		for h.decoder.queue.TryEnqueue(testFrame(n)) != nil {
			time.Sleep(100 * time.Microsecond)
		}
	}
	if err := h.renderer.Detach(h.decoder); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	cancel()
	wg.Wait()

	for n := uint64(1); n <= frames; n++ {
		if c := h.decoder.releaseCount(n); c != 1 {
			t.Fatalf("frame %d released %d times, want 1", n, c)
		}
	}
	if total := h.decoder.totalReleases(); total != frames {
		t.Errorf("total releases = %d, want %d", total, frames)
	}
}
