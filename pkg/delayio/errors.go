package delayio

import "errors"

var (
	// Lifecycle errors
	ErrNotOpen     = errors.New("device not open")
	ErrAlreadyOpen = errors.New("device already open")
	ErrClosed      = errors.New("device closed")

	// Configuration errors
	ErrInvalidChunkSize   = errors.New("invalid chunk size")
	ErrInvalidJitterRange = errors.New("invalid jitter range")
	ErrInvalidInterval    = errors.New("invalid release interval")

	// Sequential devices cannot seek or rewind
	ErrSequential = errors.New("device is sequential")

	// ErrTimeout is returned by blocking readers when a wait expires
	ErrTimeout = errors.New("wait for ready read timed out")
)
