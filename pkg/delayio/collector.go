package delayio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/ssungk/delayio/pkg/buf"
)

// Collector drains a Proxy on its "data ready" events and reassembles the
// bytes it reads
type Collector struct {
	proxy  *Proxy
	logger *zap.Logger

	mu    sync.Mutex
	data  bytes.Buffer
	reads int
}

// NewCollector creates a collector reading from p
func NewCollector(p *Proxy) *Collector {
	return &Collector{
		proxy:  p,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger used for read events
func (c *Collector) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c.logger = logger
}

// Run reads until the proxy reports io.EOF, a read fails, or ctx is done.
// Reaching io.EOF returns nil.
func (c *Collector) Run(ctx context.Context) error {
	ready, unsubscribe := c.proxy.NotifyReadyRead()
	defer unsubscribe()

	for {
		finished, err := c.drain()
		if finished {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ready:
		}
	}
}

// drain reads until the proxy has nothing released
func (c *Collector) drain() (bool, error) {
	for {
		size := int(c.proxy.BytesAvailable())
		if size <= 0 {
			size = DefaultReadSize
		}

		scratch := buf.Get(size)
		n, err := c.proxy.Read(scratch)
		if n > 0 {
			c.mu.Lock()
			c.data.Write(scratch[:n])
			c.reads++
			c.mu.Unlock()
			c.logger.Debug("collected", zap.Int("bytes", n))
		}
		buf.Put(scratch)

		switch {
		case errors.Is(err, io.EOF):
			return true, nil
		case err != nil:
			c.logger.Warn("read failed", zap.Error(err))
			return true, err
		case n == 0:
			return false, nil
		}
	}
}

// Data returns a copy of everything read so far
func (c *Collector) Data() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.data.Bytes())
}

// Reads returns the number of reads that returned data
func (c *Collector) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
