package render

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/denis-giri/pdraw/pkg/types"
)

// NullRenderer consumes decoder output without drawing anything. It keeps
// the decoder's queues flowing in headless builds and can drive itself with
// its own goroutine.
type NullRenderer struct {
	core

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Renderer = (*NullRenderer)(nil)

// NewNullRenderer creates a renderer that drains and releases frames
func NewNullRenderer(opts Options) *NullRenderer {
	r := &NullRenderer{}
	r.core.init(opts.withDefaults("NullRenderer"))
	return r
}

func (r *NullRenderer) Configure(vp types.Viewport, display any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setViewport(vp, display)
}

func (r *NullRenderer) RenderCycle(ctx context.Context, _ time.Duration) error {
	return r.renderCycle(ctx, r.count)
}

func (r *NullRenderer) count(*types.DecodedFrame, types.Viewport) {
	r.metrics.FramesRendered.Add(1)
}

// Start runs render cycles on a background goroutine until ctx is done or
// Stop is called.
func (r *NullRenderer) Start(ctx context.Context) error {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()

	if r.done != nil {
		return errors.New("render loop already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.run(ctx, r.done)
	return nil
}

func (r *NullRenderer) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	r.log.Debug("Render loop started")
	for {
		if err := r.RenderCycle(ctx, 0); err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				r.log.Warn("Render loop stopped: %v", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Stop ends the background loop and waits for it to exit
func (r *NullRenderer) Stop() {
	r.loopMu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.log.Debug("Render loop stopped")
}

// Close stops the loop and detaches the decoder
func (r *NullRenderer) Close() error {
	r.Stop()
	r.shutdown()
	return nil
}
