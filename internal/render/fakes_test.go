package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/denis-giri/pdraw/internal/bufq"
	"github.com/denis-giri/pdraw/internal/clock"
	"github.com/denis-giri/pdraw/internal/metrics"
	"github.com/denis-giri/pdraw/pkg/types"
)

// eventLog records the order of releases and draws across fakes
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeDecoder struct {
	log        *eventLog
	queue      *bufq.Queue
	configured bool
	openErr    error
	closeErr   error
	releaseErr error

	mu       sync.Mutex
	released map[uint64]int
	closed   int
}

func newFakeDecoder(log *eventLog) *fakeDecoder {
	return &fakeDecoder{
		log:        log,
		queue:      bufq.New(16),
		configured: true,
		released:   make(map[uint64]int),
	}
}

func (d *fakeDecoder) OpenOutputQueue() (FrameQueue, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.queue, nil
}

func (d *fakeDecoder) CloseOutputQueue(q FrameQueue) error {
	d.mu.Lock()
	d.closed++
	d.mu.Unlock()
	if q != FrameQueue(d.queue) {
		return errors.New("unknown queue")
	}
	for _, f := range d.queue.Close() {
		_ = d.ReleaseFrame(f)
	}
	return d.closeErr
}

func (d *fakeDecoder) Configured() bool { return d.configured }

func (d *fakeDecoder) ReleaseFrame(f *types.DecodedFrame) error {
	d.mu.Lock()
	d.released[f.FrameNum]++
	d.mu.Unlock()
	if d.log != nil {
		d.log.add("release F%d", f.FrameNum)
	}
	return d.releaseErr
}

func (d *fakeDecoder) releaseCount(n uint64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released[n]
}

func (d *fakeDecoder) totalReleases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, c := range d.released {
		total += c
	}
	return total
}

func (d *fakeDecoder) push(t *testing.T, frames ...*types.DecodedFrame) {
	t.Helper()
	for _, f := range frames {
		if err := d.queue.TryEnqueue(f); err != nil {
			t.Fatalf("enqueue frame %d: %v", f.FrameNum, err)
		}
	}
}

func testFrame(n uint64) *types.DecodedFrame {
	return &types.DecodedFrame{
		FrameNum:    n,
		ColorFormat: types.ColorFormatYUV420Planar,
		Planes:      [][]byte{make([]byte, 4), make([]byte, 1), make([]byte, 1)},
		Strides:     []int{2, 1, 1},
		Width:       2,
		Height:      2,
		SARWidth:    1,
		SARHeight:   1,
	}
}

type fakeVideo struct {
	log   *eventLog
	err   error
	calls []VideoPlaneParams
	units int

	closed bool
}

func (v *fakeVideo) RenderFrame(p VideoPlaneParams) error {
	v.calls = append(v.calls, p)
	if v.log != nil {
		v.log.add("draw %dx%d", p.Width, p.Height)
	}
	return v.err
}

func (v *fakeVideo) TexUnitCount() int { return v.units }

func (v *fakeVideo) Close() error {
	v.closed = true
	return nil
}

type fakeOverlay struct {
	err     error
	aspects []float64
	unit    int
	closed  bool
}

func (o *fakeOverlay) RenderOverlay(aspect float64, _ *types.Telemetry) error {
	o.aspects = append(o.aspects, aspect)
	return o.err
}

func (o *fakeOverlay) Close() error {
	o.closed = true
	return nil
}

type fakeSurface struct {
	states    []SurfaceState
	clears    int
	viewports [][4]int
	display   any
	presents  int
}

func (s *fakeSurface) Apply(state SurfaceState) { s.states = append(s.states, state) }
func (s *fakeSurface) Clear()                   { s.clears++ }
func (s *fakeSurface) SetViewport(x, y, w, h int) {
	s.viewports = append(s.viewports, [4]int{x, y, w, h})
}
func (s *fakeSurface) BindDisplay(d any) { s.display = d }
func (s *fakeSurface) Present()          { s.presents++ }

// countingPacer records idle waits instead of sleeping
type countingPacer struct {
	calls atomic.Int64
}

func (p *countingPacer) Idle(ctx context.Context) error {
	p.calls.Add(1)
	return ctx.Err()
}

type recordingSink struct {
	samples []types.LatencySample
}

func (s *recordingSink) RecordLatency(sample types.LatencySample) {
	s.samples = append(s.samples, sample)
}

type harness struct {
	renderer *SurfaceRenderer
	decoder  *fakeDecoder
	video    *fakeVideo
	overlay  *fakeOverlay
	surface  *fakeSurface
	pacer    *countingPacer
	metrics  *metrics.Metrics
	sink     *recordingSink
	clock    *clock.Manual
	log      *eventLog
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		log:     &eventLog{},
		surface: &fakeSurface{},
		pacer:   &countingPacer{},
		metrics: metrics.New(),
		sink:    &recordingSink{},
		clock:   clock.NewManual(1_000_000),
	}
	h.decoder = newFakeDecoder(h.log)
	h.video = &fakeVideo{log: h.log, units: 3}
	h.overlay = &fakeOverlay{}

	r, err := NewSurfaceRenderer(h.surface,
		func(unit int) (VideoPlaneRenderer, error) { return h.video, nil },
		func(unit int) (OverlayRenderer, error) {
			h.overlay.unit = unit
			return h.overlay, nil
		},
		Options{
			Metrics: h.metrics,
			Pacer:   h.pacer,
			Clock:   h.clock,
			Sinks:   []LatencySink{h.sink},
		})
	if err != nil {
		t.Fatalf("NewSurfaceRenderer: %v", err)
	}
	h.renderer = r
	t.Cleanup(func() { _ = r.Close() })

	r.Configure(types.Viewport{WindowWidth: 640, WindowHeight: 480, RenderWidth: 640, RenderHeight: 480}, nil)
	return h
}
