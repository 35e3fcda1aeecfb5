package delayio

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// Pipe is a sequential in-memory Device fed by a producer, similar to the
// read side of a socket. Reads never block; WaitForReadyRead does.
type Pipe struct {
	mu      sync.Mutex
	pending []byte
	written bytes.Buffer
	pos     int64
	eof     bool
	closed  bool
	err     error
	changed chan struct{}
	notify  notifier
}

// NewPipe creates an empty open pipe
func NewPipe() *Pipe {
	return &Pipe{changed: make(chan struct{})}
}

// Feed makes p readable and announces it to subscribers
func (pp *Pipe) Feed(p []byte) (int, error) {
	pp.mu.Lock()
	if pp.closed || pp.eof {
		pp.mu.Unlock()
		return 0, ErrClosed
	}
	pp.pending = append(pp.pending, p...)
	pp.broadcastLocked()
	pp.mu.Unlock()

	pp.notify.notify()
	return len(p), nil
}

// CloseFeed marks the end of the data. A non-nil err is reported by Err and
// by reads once the pending data is drained.
func (pp *Pipe) CloseFeed(err error) {
	pp.mu.Lock()
	if pp.eof {
		pp.mu.Unlock()
		return
	}
	pp.eof = true
	if err != nil {
		pp.err = err
	}
	pp.broadcastLocked()
	pp.mu.Unlock()

	pp.notify.notify()
}

// broadcastLocked wakes every WaitForReadyRead caller
func (pp *Pipe) broadcastLocked() {
	close(pp.changed)
	pp.changed = make(chan struct{})
}

// Read reads pending data without blocking
func (pp *Pipe) Read(p []byte) (int, error) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if pp.closed {
		pp.err = ErrClosed
		return 0, ErrClosed
	}
	if len(pp.pending) == 0 {
		if pp.eof {
			if pp.err != nil {
				return 0, pp.err
			}
			return 0, io.EOF
		}
		return 0, nil
	}

	n := copy(p, pp.pending)
	pp.pending = pp.pending[n:]
	pp.pos += int64(n)
	return n, nil
}

// Write records outbound data, readable through Written
func (pp *Pipe) Write(p []byte) (int, error) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if pp.closed {
		pp.err = ErrClosed
		return 0, ErrClosed
	}
	return pp.written.Write(p)
}

// Written returns everything written to the pipe so far
func (pp *Pipe) Written() []byte {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return bytes.Clone(pp.written.Bytes())
}

// Close closes the pipe and wakes waiting readers
func (pp *Pipe) Close() error {
	pp.mu.Lock()
	if pp.closed {
		pp.mu.Unlock()
		return nil
	}
	pp.closed = true
	pp.broadcastLocked()
	pp.mu.Unlock()
	return nil
}

// BytesAvailable returns the pending byte count
func (pp *Pipe) BytesAvailable() int64 {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if pp.closed {
		return 0
	}
	return int64(len(pp.pending))
}

// BytesToWrite is always 0
func (pp *Pipe) BytesToWrite() int64 { return 0 }

// AtEnd reports a closed pipe or a drained, finished feed
func (pp *Pipe) AtEnd() bool {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.closed || (pp.eof && len(pp.pending) == 0)
}

// CanReadLine reports a newline in the pending data
func (pp *Pipe) CanReadLine() bool {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return bytes.IndexByte(pp.pending, '\n') >= 0
}

// Pos returns the number of bytes read
func (pp *Pipe) Pos() int64 {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.pos
}

// Reset always fails, a pipe cannot be rewound
func (pp *Pipe) Reset() error { return ErrSequential }

// IsSequential is always true
func (pp *Pipe) IsSequential() bool { return true }

// WaitForReadyRead blocks until data is pending, the feed ends, or the
// timeout expires. It returns true when something is readable, EOF included.
func (pp *Pipe) WaitForReadyRead(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		pp.mu.Lock()
		if pp.closed {
			pp.mu.Unlock()
			return false
		}
		if len(pp.pending) > 0 || pp.eof {
			pp.mu.Unlock()
			return true
		}
		changed := pp.changed
		pp.mu.Unlock()

		select {
		case <-changed:
		case <-timer.C:
			return false
		}
	}
}

// WaitForBytesWritten returns false, writes complete at once
func (pp *Pipe) WaitForBytesWritten(time.Duration) bool { return false }

// NotifyReadyRead subscribes to feeds and to the end of the feed
func (pp *Pipe) NotifyReadyRead() (<-chan struct{}, func()) {
	return pp.notify.subscribe()
}

// Err returns the feed error or the last read or write error
func (pp *Pipe) Err() error {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.err
}
