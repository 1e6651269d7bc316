package render

import (
	"fmt"

	"github.com/denis-giri/pdraw/internal/logger"
)

// attachment binds a renderer to its decoder and the output queue obtained
// from it. The zero value is detached; decoder and queue are always both set
// or both nil.
type attachment struct {
	decoder Decoder
	queue   FrameQueue
}

func (a *attachment) bound() bool {
	return a.decoder != nil
}

func (a *attachment) attach(d Decoder) error {
	if d == nil {
		return ErrInvalidArgument
	}
	if a.decoder != nil {
		return ErrAlreadyAttached
	}

	q, err := d.OpenOutputQueue()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrQueueCreationFailed, err)
	}
	if q == nil {
		return ErrQueueCreationFailed
	}

	a.decoder = d
	a.queue = q
	return nil
}

// detach clears the attachment even when the decoder fails to close the
// queue, so the renderer never keeps a dangling handle.
func (a *attachment) detach(d Decoder, log *logger.Module) error {
	if d == nil {
		return ErrInvalidArgument
	}
	if d != a.decoder {
		return ErrIdentityMismatch
	}

	if err := d.CloseOutputQueue(a.queue); err != nil {
		log.Error("Failed to remove output queue from decoder: %v", err)
	}

	a.decoder = nil
	a.queue = nil
	return nil
}
