package render

import "errors"

var (
	// ErrInvalidArgument is returned when a nil decoder is passed to Attach or Detach
	ErrInvalidArgument = errors.New("invalid decoder")
	// ErrAlreadyAttached is returned when Attach is called while a decoder is bound
	ErrAlreadyAttached = errors.New("multiple decoders are not supported")
	// ErrIdentityMismatch is returned when Detach names a decoder that is not attached
	ErrIdentityMismatch = errors.New("decoder is not the attached one")
	// ErrQueueCreationFailed is returned when the decoder cannot supply an output queue
	ErrQueueCreationFailed = errors.New("failed to add output queue to decoder")
	// ErrClosed is returned by operations on a closed renderer
	ErrClosed = errors.New("renderer closed")
)
