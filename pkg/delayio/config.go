package delayio

import (
	"fmt"
	"time"
)

// Config holds the release schedule of a Proxy
type Config struct {
	ChunkSize       int
	JitterRange     int
	ReleaseInterval time.Duration
	Jitter          JitterSource
}

// DefaultConfig returns the default release configuration
func DefaultConfig() Config {
	return Config{
		ChunkSize:       DefaultChunkSize,
		JitterRange:     DefaultJitterRange,
		ReleaseInterval: DefaultReleaseInterval,
	}
}

// Validate checks chunk size, jitter range and interval
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: %d must be positive", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.JitterRange < 0 || c.JitterRange >= c.ChunkSize {
		return fmt.Errorf("%w: %d must be in [0, %d)", ErrInvalidJitterRange, c.JitterRange, c.ChunkSize)
	}
	if c.ReleaseInterval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, c.ReleaseInterval)
	}
	return nil
}
