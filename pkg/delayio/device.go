package delayio

import (
	"io"
	"sync"
	"time"
)

// Device is a sequential byte stream with readiness notification.
// Proxy consumes a Device as its source and implements Device itself.
type Device interface {
	io.Reader
	io.Writer
	io.Closer

	// BytesAvailable returns the number of bytes that can be read without blocking.
	BytesAvailable() int64
	// BytesToWrite returns the number of bytes waiting to be written.
	BytesToWrite() int64
	// AtEnd reports whether no more data will ever be readable.
	AtEnd() bool
	CanReadLine() bool
	Pos() int64
	Reset() error
	IsSequential() bool

	// WaitForReadyRead blocks until new data is readable or the timeout expires.
	WaitForReadyRead(timeout time.Duration) bool
	WaitForBytesWritten(timeout time.Duration) bool

	// NotifyReadyRead subscribes to "new data available" events. The channel
	// has capacity 1 and coalesces events; the returned func unsubscribes.
	NotifyReadyRead() (<-chan struct{}, func())

	// Err returns the last error reported by the device.
	Err() error
}

// notifier fans out readiness events to subscribers
type notifier struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func (n *notifier) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[chan struct{}]struct{})
	}
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, ch)
			n.mu.Unlock()
		})
	}
}

// notify signals every subscriber without blocking
func (n *notifier) notify() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
