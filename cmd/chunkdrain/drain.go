package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ssungk/delayio/pkg/delayio"
)

const (
	modeEvents   = "events"
	modeBlocking = "blocking"
)

// Drainer copies one source through a proxy
type Drainer struct {
	cfg         delayio.Config
	mode        string
	logger      *zap.Logger
	waitTimeout time.Duration
	progress    time.Duration
}

// NewDrainer creates a drainer using cfg and the given consumer mode
func NewDrainer(cfg delayio.Config, mode string, logger *zap.Logger) *Drainer {
	return &Drainer{
		cfg:         cfg,
		mode:        mode,
		logger:      logger,
		waitTimeout: 5 * time.Second,
	}
}

// Run drains path (stdin when empty) into out
func (d *Drainer) Run(ctx context.Context, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if d.mode != modeEvents && d.mode != modeBlocking {
		return fmt.Errorf("unknown mode %q", d.mode)
	}

	src, closeSrc, err := openSource(path)
	if err != nil {
		return err
	}
	defer closeSrc()

	proxy, err := delayio.NewWithConfig(delayio.NewReaderDevice(src), d.cfg)
	if err != nil {
		return err
	}
	proxy.SetLogger(d.logger)

	if err := proxy.Open(); err != nil {
		return err
	}
	defer proxy.Close()

	d.logger.Info("Drain started",
		zap.String("source", sourceName(path)),
		zap.String("mode", d.mode))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return d.drain(gctx, proxy, out)
	})
	if d.progress > 0 {
		g.Go(func() error {
			d.reportProgress(gctx, proxy)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.logger.Error("Drain failed", zap.Error(err))
		return err
	}

	stats := proxy.Stats()
	d.logger.Info("Drain finished",
		zap.Uint64("ticks", stats.Ticks),
		zap.Uint64("bytesRead", stats.BytesRead))
	return nil
}

func (d *Drainer) drain(ctx context.Context, proxy *delayio.Proxy, out io.Writer) error {
	if d.mode == modeBlocking {
		// Closing the proxy wakes a reader blocked on the source
		stop := context.AfterFunc(ctx, func() { proxy.Close() })
		defer stop()

		_, err := io.Copy(out, &ctxReader{ctx: ctx, r: delayio.NewReader(proxy, d.waitTimeout)})
		return err
	}

	c := delayio.NewCollector(proxy)
	c.SetLogger(d.logger)
	if err := c.Run(ctx); err != nil {
		return err
	}
	_, err := out.Write(c.Data())
	return err
}

// ctxReader reports the context's error once it is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(p)
	if err != nil {
		if cerr := c.ctx.Err(); cerr != nil {
			return n, cerr
		}
	}
	return n, err
}

func (d *Drainer) reportProgress(ctx context.Context, proxy *delayio.Proxy) {
	ticker := time.NewTicker(d.progress)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := proxy.Stats()
			d.logger.Info("Drain progress",
				zap.Uint64("ticks", stats.Ticks),
				zap.Uint64("bytesReleased", stats.BytesReleased),
				zap.Uint64("bytesRead", stats.BytesRead))
		}
	}
}

func openSource(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func sourceName(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	return path
}
