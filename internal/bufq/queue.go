package bufq

import (
	"errors"
	"sync"

	"github.com/denis-giri/pdraw/pkg/types"
)

var (
	// ErrEmpty is returned by TryDequeue when no frame is pending
	ErrEmpty = errors.New("queue empty")
	// ErrFull is returned by TryEnqueue when the queue is at capacity
	ErrFull = errors.New("queue full")
	// ErrClosed is returned once the queue has been closed
	ErrClosed = errors.New("queue closed")
)

// DefaultCapacity matches the decoder's output pool depth
const DefaultCapacity = 8

// Queue is a bounded FIFO of decoded frames shared by one producer (the
// decoder) and one consumer (the renderer). Neither side ever blocks.
type Queue struct {
	mu     sync.Mutex
	frames chan *types.DecodedFrame
	closed bool
}

// New creates a queue holding at most capacity frames
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		frames: make(chan *types.DecodedFrame, capacity),
	}
}

// TryEnqueue appends a frame without blocking
func (q *Queue) TryEnqueue(frame *types.DecodedFrame) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	select {
	case q.frames <- frame:
		return nil
	default:
		return ErrFull
	}
}

// TryDequeue removes the oldest frame without blocking. It returns ErrEmpty
// when nothing is pending and ErrClosed after Close.
func (q *Queue) TryDequeue() (*types.DecodedFrame, error) {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}

	select {
	case frame := <-q.frames:
		return frame, nil
	default:
		return nil, ErrEmpty
	}
}

// Len returns the number of pending frames
func (q *Queue) Len() int {
	return len(q.frames)
}

// Cap returns the queue capacity
func (q *Queue) Cap() int {
	return cap(q.frames)
}

// Close marks the queue closed and returns the frames still pending so the
// owner can release them.
func (q *Queue) Close() []*types.DecodedFrame {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	var pending []*types.DecodedFrame
	for {
		select {
		case frame := <-q.frames:
			pending = append(pending, frame)
		default:
			return pending
		}
	}
}
