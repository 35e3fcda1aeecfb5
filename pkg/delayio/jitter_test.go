package delayio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceJitter(t *testing.T) {
	src := NewSequenceJitter(3, -4, 5)

	var got []int
	for i := 0; i < 7; i++ {
		got = append(got, src.Int())
	}
	assert.Equal(t, []int{3, 4, 5, 3, 4, 5, 3}, got)
}

func TestSequenceJitter_Empty(t *testing.T) {
	src := NewSequenceJitter()
	assert.Equal(t, 0, src.Int())
	assert.Equal(t, 0, src.Int())
}

func TestRandJitter_Reproducible(t *testing.T) {
	a := NewRandJitter(42)
	b := NewRandJitter(42)
	c := NewRandJitter(43)

	same, differs := true, false
	for i := 0; i < 32; i++ {
		x, y, z := a.Int(), b.Int(), c.Int()
		assert.GreaterOrEqual(t, x, 0)
		same = same && x == y
		differs = differs || x != z
	}
	assert.True(t, same, "equal seeds give equal sequences")
	assert.True(t, differs, "different seeds give different sequences")
}

func TestSeedJitter(t *testing.T) {
	SeedJitter(7)
	first := []int{defaultJitter.Int(), defaultJitter.Int(), defaultJitter.Int()}
	SeedJitter(7)
	second := []int{defaultJitter.Int(), defaultJitter.Int(), defaultJitter.Int()}
	assert.Equal(t, first, second)
}

func TestChunkFor(t *testing.T) {
	tests := []struct {
		name        string
		chunkSize   int
		jitterRange int
		random      int
		want        int64
	}{
		{"no jitter", 8, 0, 12345, 8},
		{"lowest", 5, 3, 0, 2},
		{"middle", 5, 3, 3, 5},
		{"highest", 5, 3, 6, 8},
		{"wraps", 5, 3, 7, 2},
		{"smallest chunk", 2, 1, 0, 1},
		{"negative folded", 5, 3, -1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunkFor(tt.chunkSize, tt.jitterRange, JitterFunc(func() int { return tt.random }))
			assert.Equal(t, tt.want, got)
		})
	}
}
