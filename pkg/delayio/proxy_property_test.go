package delayio

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Every release lies in [max(1, c-d), c+d] whatever the jitter source yields.
func TestProperty_ChunkBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := rapid.IntRange(1, 4096).Draw(t, "chunkSize")
		d := rapid.IntRange(0, c-1).Draw(t, "jitterRange")
		r := rapid.IntRange(0, 1<<40).Draw(t, "random")

		size := chunkFor(c, d, JitterFunc(func() int { return r }))

		if lo := int64(max(1, c-d)); size < lo {
			t.Fatalf("chunk %d below %d (c=%d d=%d r=%d)", size, lo, c, d, r)
		}
		if hi := int64(c + d); size > hi {
			t.Fatalf("chunk %d above %d (c=%d d=%d r=%d)", size, hi, c, d, r)
		}
	})
}

// Without jitter every release is exactly the chunk size, except the last.
func TestProperty_FixedChunks(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 512).Draw(t, "data")
		c := rapid.IntRange(1, 64).Draw(t, "chunkSize")

		p := New(NewBuffer(data))
		mustNoErr(t, p.SetReleaseInterval(time.Hour))
		mustNoErr(t, p.SetChunkSize(c))
		mustNoErr(t, p.Open())
		defer p.Close()

		var sizes []int
		buf := make([]byte, 128)
		for {
			if !p.WaitForReadyRead(time.Second) {
				t.Fatal("wait failed")
			}
			n, err := p.Read(buf)
			if n > 0 {
				sizes = append(sizes, n)
			}
			if errors.Is(err, io.EOF) {
				break
			}
			mustNoErr(t, err)
		}

		for i, n := range sizes {
			last := i == len(sizes)-1
			if !last && n != c {
				t.Fatalf("release %d is %d bytes, want %d", i, n, c)
			}
			if last && (n < 1 || n > c) {
				t.Fatalf("last release is %d bytes, want 1..%d", n, c)
			}
		}
	})
}

// Any mix of reads and waits keeps the accounting in bounds and returns the
// source data unchanged.
func TestProperty_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 1024).Draw(t, "data")
		c := rapid.IntRange(1, 32).Draw(t, "chunkSize")
		d := rapid.IntRange(0, c-1).Draw(t, "jitterRange")
		seed := rapid.Uint64().Draw(t, "seed")

		source := NewBuffer(data)
		p := New(source)
		mustNoErr(t, p.SetReleaseInterval(time.Hour))
		mustNoErr(t, p.SetChunkSize(c))
		mustNoErr(t, p.SetJitterRange(d))
		p.SetJitterSource(NewRandJitter(seed))
		mustNoErr(t, p.Open())
		defer p.Close()

		var out []byte
		for step := 0; ; step++ {
			if step > 10*len(data)+10 {
				t.Fatalf("no EOF after %d steps", step)
			}

			if rapid.Bool().Draw(t, "wait") {
				if !p.WaitForReadyRead(time.Second) {
					t.Fatal("wait failed")
				}
			}
			checkReleased(t, p, source)

			before := p.BytesAvailable()
			buf := make([]byte, rapid.IntRange(1, 48).Draw(t, "readSize"))
			n, err := p.Read(buf)
			if int64(n) > before {
				t.Fatalf("read %d bytes with only %d released", n, before)
			}
			out = append(out, buf[:n]...)
			checkReleased(t, p, source)

			if errors.Is(err, io.EOF) {
				break
			}
			mustNoErr(t, err)
			if n == 0 && before == 0 {
				// starved: force progress
				if !p.WaitForReadyRead(time.Second) {
					t.Fatal("wait failed")
				}
			}
		}

		if !bytes.Equal(data, out) {
			t.Fatalf("round trip mismatch: got %d bytes, want %d", len(out), len(data))
		}
	})
}

func checkReleased(t *rapid.T, p *Proxy, source *Buffer) {
	released := p.BytesAvailable()
	if released < 0 || released > source.BytesAvailable() {
		t.Fatalf("released %d outside [0, %d]", released, source.BytesAvailable())
	}
}

func mustNoErr(t *rapid.T, err error) {
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
