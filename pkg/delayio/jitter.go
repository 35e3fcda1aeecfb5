package delayio

import (
	"math"
	"math/rand/v2"
	"sync"
)

// JitterSource supplies non-negative pseudo-random integers used to
// randomize the size of each released chunk.
type JitterSource interface {
	Int() int
}

// JitterFunc adapts an ordinary function to JitterSource
type JitterFunc func() int

// Int calls f
func (f JitterFunc) Int() int {
	return f()
}

// sequenceJitter cycles through a fixed list of values
type sequenceJitter struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewSequenceJitter returns a source that yields values in order and starts
// over after the last one. Negative values are folded to their absolute value.
func NewSequenceJitter(values ...int) JitterSource {
	seq := make([]int, len(values))
	for i, v := range values {
		if v < 0 {
			v = -v
		}
		seq[i] = v
	}
	if len(seq) == 0 {
		seq = []int{0}
	}
	return &sequenceJitter{values: seq}
}

func (s *sequenceJitter) Int() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.values[s.next]
	s.next = (s.next + 1) % len(s.values)
	return v
}

// randJitter is a PCG generator guarded for use from the dispatch goroutine
// and synchronous waits at once
type randJitter struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandJitter returns a reproducible source seeded with seed
func NewRandJitter(seed uint64) JitterSource {
	return &randJitter{r: rand.New(rand.NewPCG(seed, seed))}
}

func (j *randJitter) Int() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.r.Int()
}

func (j *randJitter) seed(seed uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.r = rand.New(rand.NewPCG(seed, seed))
}

// defaultJitter is used by every proxy without an injected source
var defaultJitter = &randJitter{r: rand.New(rand.NewPCG(0, 0))}

// SeedJitter reseeds the package-wide default jitter source
func SeedJitter(seed uint64) {
	defaultJitter.seed(seed)
}

// chunkFor returns the size of one release: chunkSize when jitterRange is 0,
// otherwise chunkSize shifted by a value in [-jitterRange, jitterRange],
// never less than 1
func chunkFor(chunkSize, jitterRange int, src JitterSource) int64 {
	if jitterRange <= 0 {
		return int64(chunkSize)
	}
	r := src.Int() & math.MaxInt
	delta := r%(2*jitterRange+1) - jitterRange
	return max(1, int64(chunkSize+delta))
}
