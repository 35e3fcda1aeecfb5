package delayio

import "time"

const (
	DefaultChunkSize       = 8
	DefaultJitterRange     = 0
	DefaultReleaseInterval = 10 * time.Millisecond

	// SizeUnknown is reported by Size before the proxy is opened.
	SizeUnknown = -1

	// Read size used by consumers when nothing is released yet.
	DefaultReadSize = 1024
)
