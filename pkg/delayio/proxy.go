package delayio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	_ Device = (*Proxy)(nil)
	_ Device = (*Buffer)(nil)
	_ Device = (*Pipe)(nil)
)

// Stats meters the activity of a Proxy
type Stats struct {
	Ticks         uint64
	BytesReleased uint64
	BytesRead     uint64
	BytesWritten  uint64
}

// Proxy wraps a source Device and makes its data readable in small chunks,
// one chunk per release tick. It is always sequential, whatever the source.
//
// A proxy built with New does not own its source: the source must stay
// usable until the proxy is closed.
type Proxy struct {
	mu     sync.Mutex
	source Device
	owned  *Buffer
	logger *zap.Logger

	// release schedule
	chunkSize   int
	jitterRange int
	interval    time.Duration
	jitter      JitterSource

	// source bytes currently visible to Read
	released int64

	open        bool
	timerActive bool
	ticker      *time.Ticker
	done        chan struct{}
	wg          sync.WaitGroup
	unsubscribe func()

	err    error
	stats  Stats
	notify notifier
}

// NewFromBytes creates a proxy over a private copy of data
func NewFromBytes(data []byte) *Proxy {
	b := NewBuffer(data)
	p := New(b)
	p.owned = b
	return p
}

// New creates a proxy over source with the default configuration
func New(source Device) *Proxy {
	return &Proxy{
		source:    source,
		logger:    zap.NewNop(),
		chunkSize: DefaultChunkSize,
		interval:  DefaultReleaseInterval,
	}
}

// NewWithConfig creates a proxy over source using cfg
func NewWithConfig(source Device, cfg Config) (*Proxy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := New(source)
	p.chunkSize = cfg.ChunkSize
	p.jitterRange = cfg.JitterRange
	p.interval = cfg.ReleaseInterval
	p.jitter = cfg.Jitter
	return p, nil
}

// SetLogger sets the logger used for release and error events
func (p *Proxy) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = logger
}

// ChunkSize returns the nominal number of bytes released per tick
func (p *Proxy) ChunkSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chunkSize
}

// SetChunkSize sets the nominal number of bytes released per tick.
// n must be positive and greater than the jitter range.
func (p *Proxy) SetChunkSize(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n <= 0 || n <= p.jitterRange {
		return fmt.Errorf("%w: %d (jitter range %d)", ErrInvalidChunkSize, n, p.jitterRange)
	}
	p.chunkSize = n
	return nil
}

// JitterRange returns the maximum deviation from the chunk size
func (p *Proxy) JitterRange() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jitterRange
}

// SetJitterRange randomizes each chunk within [size-d, size+d].
// d must be in [0, ChunkSize()).
func (p *Proxy) SetJitterRange(d int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if d < 0 || d >= p.chunkSize {
		return fmt.Errorf("%w: %d (chunk size %d)", ErrInvalidJitterRange, d, p.chunkSize)
	}
	p.jitterRange = d
	return nil
}

// JitterSource returns the injected jitter source, nil when the package
// default is in use
func (p *Proxy) JitterSource() JitterSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jitter
}

// SetJitterSource injects the source of chunk size randomization.
// nil restores the package default, see SeedJitter.
func (p *Proxy) SetJitterSource(src JitterSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jitter = src
}

// ReleaseInterval returns the period of the release timer
func (p *Proxy) ReleaseInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// SetReleaseInterval sets the period of the release timer
func (p *Proxy) SetReleaseInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, d)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.interval = d
	if p.timerActive {
		p.ticker.Reset(d)
	}
	return nil
}

// Open starts the release timer. The timer is armed right away when the
// source already holds data or is not sequential.
func (p *Proxy) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open {
		return ErrAlreadyOpen
	}
	if p.owned != nil {
		if err := p.owned.Open(); err != nil {
			return err
		}
	}

	p.open = true
	p.released = 0
	p.err = nil

	p.ticker = time.NewTicker(p.interval)
	p.ticker.Stop()
	p.timerActive = false

	sourceReady, unsubscribe := p.source.NotifyReadyRead()
	p.unsubscribe = unsubscribe
	p.done = make(chan struct{})

	if p.source.BytesAvailable() > 0 || !p.source.IsSequential() {
		p.armLocked()
	}

	p.wg.Add(1)
	go p.run(p.ticker, sourceReady, p.done)

	p.logger.Debug("proxy opened",
		zap.Int("chunkSize", p.chunkSize),
		zap.Int("jitterRange", p.jitterRange),
		zap.Duration("interval", p.interval))
	return nil
}

// IsOpen reports whether Open succeeded and Close was not called since
func (p *Proxy) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// run is the dispatch loop: ticks and source events are handled one at a time
func (p *Proxy) run(ticker *time.Ticker, sourceReady <-chan struct{}, done <-chan struct{}) {
	defer p.wg.Done()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p.releaseChunk()
		case <-sourceReady:
			p.sourceReadyRead()
		}
	}
}

// releaseChunk handles one timer tick
func (p *Proxy) releaseChunk() {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return
	}

	p.releaseLocked()

	// Idle ticks keep notifying while released bytes remain unread. The
	// timer stops only once everything is read and the source has ended.
	if p.released == 0 && p.source.AtEnd() {
		p.disarmLocked()
	}
	p.mu.Unlock()

	p.notify.notify()
}

// sourceReadyRead re-arms the timer; new source data is still released in chunks
func (p *Proxy) sourceReadyRead() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open {
		p.armLocked()
	}
}

// releaseLocked makes one more chunk visible, bounded by the source
func (p *Proxy) releaseLocked() {
	jitter := p.jitter
	if jitter == nil {
		jitter = defaultJitter
	}

	size := chunkFor(p.chunkSize, p.jitterRange, jitter)
	available := p.source.BytesAvailable()
	before := p.released
	p.released = max(0, min(p.released+size, available))

	p.stats.Ticks++
	if p.released > before {
		p.stats.BytesReleased += uint64(p.released - before)
	}

	p.logger.Debug("chunk released",
		zap.Int64("size", size),
		zap.Int64("released", p.released),
		zap.Int64("available", available))
}

// moreInSourceLocked reports whether the source holds unreleased bytes
func (p *Proxy) moreInSourceLocked() bool {
	return p.released < p.source.BytesAvailable()
}

// armLocked starts the release timer unless it is already running
func (p *Proxy) armLocked() {
	if p.timerActive {
		return
	}
	p.ticker.Reset(p.interval)
	p.timerActive = true
}

// disarmLocked stops the release timer
func (p *Proxy) disarmLocked() {
	if !p.timerActive {
		return
	}
	p.ticker.Stop()
	p.timerActive = false
}

// Read reads at most the released bytes. With nothing released it returns
// 0 and no error, or io.EOF once the source is at its end.
func (p *Proxy) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return 0, ErrNotOpen
	}

	limit := min(p.released, int64(len(b)))
	if limit == 0 {
		if p.released == 0 && p.moreInSourceLocked() {
			p.armLocked()
		}
		if len(b) > 0 && p.source.AtEnd() {
			if err := p.source.Err(); err != nil {
				p.err = err
				return 0, err
			}
			return 0, io.EOF
		}
		return 0, nil
	}

	n, err := p.source.Read(b[:limit])
	if n > 0 {
		p.released -= int64(n)
		p.stats.BytesRead += uint64(n)
		if p.released == 0 && p.moreInSourceLocked() {
			p.armLocked()
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		p.err = err
		p.logger.Debug("source read failed", zap.Error(err))
	}
	return n, err
}

// Write forwards p to the source without delay
func (p *Proxy) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return 0, ErrNotOpen
	}

	n, err := p.source.Write(b)
	if n > 0 {
		p.stats.BytesWritten += uint64(n)
	}
	if err != nil {
		p.err = err
		p.logger.Debug("source write failed", zap.Error(err))
	}
	return n, err
}

// Close stops the release timer and closes the source
func (p *Proxy) Close() error {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return nil
	}
	p.open = false
	p.disarmLocked()
	done := p.done
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.mu.Unlock()

	close(done)
	p.wg.Wait()
	unsubscribe()

	p.logger.Debug("proxy closed")
	return p.source.Close()
}

// BytesAvailable returns the released byte count, never the source's total
func (p *Proxy) BytesAvailable() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// Size returns the released byte count, or SizeUnknown before Open
func (p *Proxy) Size() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return SizeUnknown
	}
	return p.released
}

// AtEnd reports the source's end, not the end of the released bytes
func (p *Proxy) AtEnd() bool {
	return p.source.AtEnd()
}

// BytesToWrite returns the source's pending write count
func (p *Proxy) BytesToWrite() int64 {
	return p.source.BytesToWrite()
}

// CanReadLine reports whether the source holds a complete line
func (p *Proxy) CanReadLine() bool {
	return p.source.CanReadLine()
}

// Pos returns the source position
func (p *Proxy) Pos() int64 {
	return p.source.Pos()
}

// IsSequential is always true
func (p *Proxy) IsSequential() bool {
	return true
}

// Seek always fails
func (p *Proxy) Seek(int64) error {
	return ErrSequential
}

// Reset resets the source. On success the released bytes are withdrawn so
// that the replayed data is chunked again.
func (p *Proxy) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.source.Reset(); err != nil {
		return err
	}
	p.released = 0
	if p.open && p.source.BytesAvailable() > 0 {
		p.armLocked()
	}
	return nil
}

// WaitForReadyRead returns true once bytes are released. When the source
// holds unreleased bytes one chunk is released at once; otherwise it waits
// on the source for up to timeout. A source at its end is ready without a
// release.
func (p *Proxy) WaitForReadyRead(timeout time.Duration) bool {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return false
	}
	if p.released > 0 {
		p.mu.Unlock()
		return true
	}
	if p.moreInSourceLocked() {
		p.releaseLocked()
		p.mu.Unlock()
		return true
	}
	p.mu.Unlock()

	if !p.source.WaitForReadyRead(timeout) {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return false
	}
	// At the end of the source there is nothing to release
	if !p.source.AtEnd() {
		p.releaseLocked()
	}
	return true
}

// WaitForBytesWritten waits on the source
func (p *Proxy) WaitForBytesWritten(timeout time.Duration) bool {
	return p.source.WaitForBytesWritten(timeout)
}

// NotifyReadyRead subscribes to release ticks
func (p *Proxy) NotifyReadyRead() (<-chan struct{}, func()) {
	return p.notify.subscribe()
}

// Err returns the last error reported by the source through this proxy
func (p *Proxy) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stats returns a snapshot of the proxy's counters
func (p *Proxy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
