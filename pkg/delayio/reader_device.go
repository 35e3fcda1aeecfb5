package delayio

import (
	"errors"
	"io"

	"github.com/ssungk/delayio/pkg/buf"
)

// NewReaderDevice pumps r into a Pipe on its own goroutine. The pipe's feed
// is closed when r returns io.EOF; any other error is kept as the pipe's Err.
func NewReaderDevice(r io.Reader) *Pipe {
	p := NewPipe()
	go pump(r, p)
	return p
}

func pump(r io.Reader, p *Pipe) {
	scratch := buf.Get(buf.Size4K)
	defer buf.Put(scratch)

	for {
		n, err := r.Read(scratch)
		if n > 0 {
			if _, ferr := p.Feed(scratch[:n]); ferr != nil {
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			p.CloseFeed(err)
			return
		}
	}
}
