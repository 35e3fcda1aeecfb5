package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ssungk/delayio/pkg/delayio"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig() delayio.Config {
	cfg := delayio.DefaultConfig()
	cfg.ChunkSize = 16
	cfg.JitterRange = 8
	cfg.ReleaseInterval = time.Millisecond
	cfg.Jitter = delayio.NewRandJitter(1)
	return cfg
}

func TestDrainer_Modes(t *testing.T) {
	content := strings.Repeat("the quick brown fox jumps over the lazy dog\n", 40)
	path := writeTempFile(t, content)

	for _, mode := range []string{modeEvents, modeBlocking} {
		t.Run(mode, func(t *testing.T) {
			d := NewDrainer(testConfig(), mode, zap.NewNop())
			d.progress = time.Millisecond

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var out bytes.Buffer
			require.NoError(t, d.Run(ctx, path, &out))
			assert.Equal(t, content, out.String())
		})
	}
}

func TestDrainer_UnknownMode(t *testing.T) {
	d := NewDrainer(testConfig(), "turbo", zap.NewNop())
	err := d.Run(context.Background(), writeTempFile(t, "x"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown mode")
}

func TestDrainer_MissingFile(t *testing.T) {
	d := NewDrainer(testConfig(), modeEvents, zap.NewNop())
	err := d.Run(context.Background(), filepath.Join(t.TempDir(), "missing"), &bytes.Buffer{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDrainer_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.JitterRange = cfg.ChunkSize

	d := NewDrainer(cfg, modeEvents, zap.NewNop())
	err := d.Run(context.Background(), writeTempFile(t, "x"), &bytes.Buffer{})
	assert.ErrorIs(t, err, delayio.ErrInvalidJitterRange)
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "stdin", sourceName(""))
	assert.Equal(t, "stdin", sourceName("-"))
	assert.Equal(t, "a.txt", sourceName("a.txt"))
}

func TestDrainer_Cancel(t *testing.T) {
	for _, mode := range []string{modeEvents, modeBlocking} {
		t.Run(mode, func(t *testing.T) {
			proxy, err := delayio.NewWithConfig(delayio.NewPipe(), testConfig())
			require.NoError(t, err)
			require.NoError(t, proxy.Open())
			defer proxy.Close()

			d := NewDrainer(testConfig(), mode, zap.NewNop())
			d.waitTimeout = time.Minute

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			start := time.Now()
			err = d.drain(ctx, proxy, &bytes.Buffer{})
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Less(t, time.Since(start), 10*time.Second)
		})
	}
}
