package delayio

import (
	"io"
	"time"
)

// blockingReader turns the non-blocking Proxy.Read into a blocking io.Reader
type blockingReader struct {
	proxy   *Proxy
	timeout time.Duration
}

// NewReader returns an io.Reader that waits on p for up to timeout whenever
// no bytes are released. A wait that expires yields ErrTimeout.
// The result can be handed to bufio, encoding/xml and similar consumers.
func NewReader(p *Proxy, timeout time.Duration) io.Reader {
	return &blockingReader{proxy: p, timeout: timeout}
}

func (r *blockingReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	for {
		n, err := r.proxy.Read(b)
		if n > 0 || err != nil {
			return n, err
		}
		if !r.proxy.WaitForReadyRead(r.timeout) {
			return 0, ErrTimeout
		}
	}
}
