// Package decoder provides a software decoder stand-in that produces
// test-pattern frames with real timestamps and telemetry, exercising the
// renderer's queue and release contract end to end.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/denis-giri/pdraw/internal/bufq"
	"github.com/denis-giri/pdraw/internal/clock"
	"github.com/denis-giri/pdraw/internal/demux"
	"github.com/denis-giri/pdraw/internal/logger"
	"github.com/denis-giri/pdraw/internal/metrics"
	"github.com/denis-giri/pdraw/internal/render"
	"github.com/denis-giri/pdraw/pkg/types"
)

var (
	// ErrUnknownQueue is returned when closing a queue this decoder did not open
	ErrUnknownQueue = errors.New("unknown output queue")
	// ErrNotOutstanding is returned when releasing a frame that is not lent out
	ErrNotOutstanding = errors.New("frame not outstanding")
)

// Config describes the frames the decoder outputs
type Config struct {
	Width         int
	Height        int
	SARWidth      int
	SARHeight     int
	Format        types.ColorFormat
	QueueCapacity int
	PoolSize      int           // released plane buffers kept for reuse
	CaptureLead   time.Duration // capture-to-demux delay stamped on ticker frames, 0 for none
}

// DefaultConfig returns a 720p planar configuration
func DefaultConfig() Config {
	return Config{
		Width:         1280,
		Height:        720,
		SARWidth:      1,
		SARHeight:     1,
		Format:        types.ColorFormatYUV420Planar,
		QueueCapacity: bufq.DefaultCapacity,
		PoolSize:      16,
	}
}

// Synthetic generates decoded frames and lends them to its output queues.
// A frame pushed to several queues is returned to the pool only once every
// queue's consumer has released it. Each loan is a new *DecodedFrame; only
// plane buffers are recycled, so a stale pointer never matches a live loan.
type Synthetic struct {
	cfg     Config
	clock   clock.Clock
	metrics *metrics.Metrics
	log     *logger.Module

	mu          sync.Mutex
	queues      []*bufq.Queue
	outstanding map[*types.DecodedFrame]int
	pool        [][][]byte
	configured  bool
	sawHeaders  bool
	frameNum    uint64

	ready chan struct{}
}

var _ render.Decoder = (*Synthetic)(nil)

// New creates a decoder. A nil clock uses the process clock and nil metrics
// get a private instance.
func New(cfg Config, c clock.Clock, m *metrics.Metrics) (*Synthetic, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Format.PlaneCount() == 0 {
		return nil, fmt.Errorf("unsupported output format %s", cfg.Format)
	}
	if cfg.SARWidth <= 0 || cfg.SARHeight <= 0 {
		cfg.SARWidth, cfg.SARHeight = 1, 1
	}
	if c == nil {
		c = clock.Process()
	}
	if m == nil {
		m = metrics.New()
	}

	return &Synthetic{
		cfg:         cfg,
		clock:       c,
		metrics:     m,
		log:         logger.For("Decoder"),
		outstanding: make(map[*types.DecodedFrame]int),
		ready:       make(chan struct{}, 1),
	}, nil
}

// OpenOutputQueue creates a new output queue
func (d *Synthetic) OpenOutputQueue() (render.FrameQueue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := bufq.New(d.cfg.QueueCapacity)
	d.queues = append(d.queues, q)
	d.log.Debug("Output queue opened (%d open)", len(d.queues))
	return q, nil
}

// CloseOutputQueue stops feeding q and releases the frames still pending in it
func (d *Synthetic) CloseOutputQueue(q render.FrameQueue) error {
	bq, ok := q.(*bufq.Queue)
	if !ok {
		return ErrUnknownQueue
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	idx := -1
	for i, open := range d.queues {
		if open == bq {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownQueue
	}
	d.queues = append(d.queues[:idx], d.queues[idx+1:]...)

	pending := bq.Close()
	for _, f := range pending {
		if err := d.releaseLocked(f); err != nil {
			d.log.Warn("Release of pending frame #%d failed: %v", f.FrameNum, err)
		}
	}
	d.log.Debug("Output queue closed, %d pending frames released", len(pending))
	return nil
}

// Configured reports whether the decoder is producing frames
func (d *Synthetic) Configured() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configured
}

// Configure starts frame output without waiting for stream headers
func (d *Synthetic) Configure() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.configured {
		d.configured = true
		d.log.Info("Configured: %dx%d %s", d.cfg.Width, d.cfg.Height, d.cfg.Format)
	}
}

// ReleaseFrame returns one reference to f
func (d *Synthetic) ReleaseFrame(f *types.DecodedFrame) error {
	if f == nil {
		return ErrNotOutstanding
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.releaseLocked(f)
}

func (d *Synthetic) releaseLocked(f *types.DecodedFrame) error {
	refs, ok := d.outstanding[f]
	if !ok {
		return fmt.Errorf("%w: #%d", ErrNotOutstanding, f.FrameNum)
	}
	if refs > 1 {
		d.outstanding[f] = refs - 1
		return nil
	}
	delete(d.outstanding, f)
	d.recycleLocked(f)
	return nil
}

func (d *Synthetic) recycleLocked(f *types.DecodedFrame) {
	if len(d.pool) < d.cfg.PoolSize {
		d.pool = append(d.pool, f.Planes)
	}
}

// Outstanding returns the number of frames lent to consumers
func (d *Synthetic) Outstanding() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.outstanding)
}

// FrameReady is signalled after each frame is queued. Renderers use it to
// cut idle waits short.
func (d *Synthetic) FrameReady() <-chan struct{} {
	return d.ready
}

// Emit decodes one frame stamped with the given demux output timestamp and
// pushes it to every open queue. It returns the frame, or nil when the
// decoder is not configured or no queue accepted it.
func (d *Synthetic) Emit(demuxTs, captureTs uint64) *types.DecodedFrame {
	d.mu.Lock()

	if !d.configured || len(d.queues) == 0 {
		d.mu.Unlock()
		return nil
	}

	d.frameNum++
	f := d.frameLocked()
	f.FrameNum = d.frameNum
	f.DemuxOutputTimestamp = demuxTs
	f.CaptureTimestamp = captureTs
	f.Metadata = syntheticTelemetry(d.frameNum)
	fillPattern(f, d.frameNum)
	f.DecoderOutputTimestamp = d.clock.NowMicros()
	d.metrics.FramesDecoded.Add(1)

	// Consumers that dequeue early block in ReleaseFrame until the
	// references below are recorded.
	refs := 0
	for _, q := range d.queues {
		if err := q.TryEnqueue(f); err != nil {
			d.metrics.DecoderQueueDropped.Add(1)
			continue
		}
		refs++
	}
	if refs == 0 {
		d.recycleLocked(f)
		d.mu.Unlock()
		return nil
	}
	d.outstanding[f] = refs
	d.mu.Unlock()

	select {
	case d.ready <- struct{}{}:
	default:
	}
	return f
}

// DecodeAU feeds one access unit. Output starts at the first IDR once SPS
// and PPS have been seen; earlier units are discarded.
func (d *Synthetic) DecodeAU(au demux.AccessUnit) *types.DecodedFrame {
	d.mu.Lock()
	if !d.configured {
		var sps, pps bool
		for _, nal := range au.NALUnits {
			switch nal.Type {
			case demux.NALTypeSPS:
				sps = true
			case demux.NALTypePPS:
				pps = true
			}
		}
		if sps && pps {
			d.sawHeaders = true
		}
		if !d.sawHeaders || !au.IsIDR {
			d.mu.Unlock()
			d.log.Debug("Discarding access unit before first IDR")
			return nil
		}
		d.configured = true
		d.log.Info("Configured from stream: %dx%d %s", d.cfg.Width, d.cfg.Height, d.cfg.Format)
	}
	d.mu.Unlock()

	return d.Emit(au.DemuxTimestamp, 0)
}

// Run emits a frame every interval until ctx is cancelled
func (d *Synthetic) Run(ctx context.Context, interval time.Duration) error {
	d.Configure()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := d.clock.NowMicros()
			var capture uint64
			if lead := uint64(d.cfg.CaptureLead.Microseconds()); lead > 0 && lead < now {
				capture = now - lead
			}
			d.Emit(now, capture)
		}
	}
}

// Feed decodes aus at the given interval, stamping each one as it leaves the
// demuxer. With loop set the sequence restarts at its end.
func (d *Synthetic) Feed(ctx context.Context, aus []demux.AccessUnit, interval time.Duration, loop bool) error {
	if len(aus) == 0 {
		return errors.New("no access units to feed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			au := aus[i]
			au.DemuxTimestamp = d.clock.NowMicros()
			d.DecodeAU(au)

			i++
			if i == len(aus) {
				if !loop {
					d.log.Info("End of stream after %d access units", len(aus))
					return nil
				}
				i = 0
			}
		}
	}
}

// frameLocked builds a new frame over pooled planes, or fresh ones when
// the pool is empty
func (d *Synthetic) frameLocked() *types.DecodedFrame {
	var planes [][]byte
	if n := len(d.pool); n > 0 {
		planes = d.pool[n-1]
		d.pool = d.pool[:n-1]
	}
	return newFrame(d.cfg, planes)
}

func newFrame(cfg Config, planes [][]byte) *types.DecodedFrame {
	w, h := cfg.Width, cfg.Height
	cw, ch := (w+1)/2, (h+1)/2

	f := &types.DecodedFrame{
		ColorFormat: cfg.Format,
		Width:       w,
		Height:      h,
		SARWidth:    cfg.SARWidth,
		SARHeight:   cfg.SARHeight,
		Planes:      planes,
	}
	switch cfg.Format {
	case types.ColorFormatYUV420SemiPlanar:
		if f.Planes == nil {
			f.Planes = [][]byte{make([]byte, w*h), make([]byte, 2*cw*ch)}
		}
		f.Strides = []int{w, 2 * cw}
	default:
		if f.Planes == nil {
			f.Planes = [][]byte{make([]byte, w*h), make([]byte, cw*ch), make([]byte, cw*ch)}
		}
		f.Strides = []int{w, cw, cw}
	}
	return f
}

// fillPattern draws diagonal luma bars scrolling with n over a slowly
// rotating chroma tint.
func fillPattern(f *types.DecodedFrame, n uint64) {
	shift := int(n * 4)
	y := f.Planes[0]
	for row := 0; row < f.Height; row++ {
		line := y[row*f.Strides[0]:]
		for col := 0; col < f.Width; col++ {
			line[col] = byte((col + row + shift) & 0xff)
		}
	}

	phase := float64(n) * 0.02
	u := byte(128 + 64*math.Cos(phase))
	v := byte(128 + 64*math.Sin(phase))
	ch := (f.Height + 1) / 2
	cw := (f.Width + 1) / 2

	switch f.ColorFormat {
	case types.ColorFormatYUV420SemiPlanar:
		uv := f.Planes[1]
		for row := 0; row < ch; row++ {
			line := uv[row*f.Strides[1]:]
			for col := 0; col < cw; col++ {
				line[2*col] = u
				line[2*col+1] = v
			}
		}
	default:
		fill(f.Planes[1], u)
		fill(f.Planes[2], v)
	}
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

// syntheticTelemetry describes a slow orbit around a fixed point
func syntheticTelemetry(n uint64) types.Telemetry {
	t := float64(n) / 30
	return types.Telemetry{
		Roll:           0.2 * math.Sin(t),
		Pitch:          0.1 * math.Cos(t*0.7),
		Yaw:            math.Mod(t*0.1, 2*math.Pi) - math.Pi,
		Altitude:       30 + 5*math.Sin(t*0.2),
		Latitude:       48.8788 + 0.0005*math.Sin(t*0.05),
		Longitude:      2.3675 + 0.0005*math.Cos(t*0.05),
		GroundSpeed:    4 + math.Sin(t*0.3),
		BatteryPercent: 100 - int(n/1800)%100,
		WifiRSSI:       -45 - int(n/300)%30,
		Recording:      (n/900)%2 == 1,
	}
}
