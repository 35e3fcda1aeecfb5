package delayio

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// Buffer is an in-memory, random-access Device over a byte slice.
// All of its data is available at once.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	pos    int64
	open   bool
	err    error
	notify notifier
}

// NewBuffer creates an open buffer holding a copy of data
func NewBuffer(data []byte) *Buffer {
	return &Buffer{
		data: bytes.Clone(data),
		open: true,
	}
}

// Open reopens the buffer at position 0
func (b *Buffer) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.open = true
	b.pos = 0
	b.err = nil
	return nil
}

// Read reads from the current position
func (b *Buffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		b.err = ErrClosed
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if b.pos >= int64(len(b.data)) {
		return 0, io.EOF
	}

	n := copy(p, b.data[b.pos:])
	b.pos += int64(n)
	return n, nil
}

// Write appends p to the buffer and announces the new data
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	if !b.open {
		b.err = ErrClosed
		b.mu.Unlock()
		return 0, ErrClosed
	}
	b.data = append(b.data, p...)
	b.mu.Unlock()

	if len(p) > 0 {
		b.notify.notify()
	}
	return len(p), nil
}

// Close closes the buffer; the data is kept for a later Open
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.open = false
	return nil
}

// Bytes returns the whole content regardless of position
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.data)
}

// BytesAvailable returns the unread byte count
func (b *Buffer) BytesAvailable() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return 0
	}
	return int64(len(b.data)) - b.pos
}

// BytesToWrite is always 0, writes complete at once
func (b *Buffer) BytesToWrite() int64 { return 0 }

// AtEnd reports whether every byte was read or the buffer is closed
func (b *Buffer) AtEnd() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.open || b.pos >= int64(len(b.data))
}

// CanReadLine reports a newline in the unread part
func (b *Buffer) CanReadLine() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && bytes.IndexByte(b.data[b.pos:], '\n') >= 0
}

// Pos returns the read position
func (b *Buffer) Pos() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pos
}

// Reset rewinds to the start
func (b *Buffer) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrNotOpen
	}
	b.pos = 0
	return nil
}

// IsSequential is false, the buffer can be rewound
func (b *Buffer) IsSequential() bool { return false }

// WaitForReadyRead returns true at once: the buffer never waits for data
func (b *Buffer) WaitForReadyRead(time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// WaitForBytesWritten returns false, nothing is ever pending
func (b *Buffer) WaitForBytesWritten(time.Duration) bool { return false }

// NotifyReadyRead subscribes to writes
func (b *Buffer) NotifyReadyRead() (<-chan struct{}, func()) {
	return b.notify.subscribe()
}

// Err returns the last read or write error
func (b *Buffer) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
