// Package buf pools scratch byte slices for stream consumers.
package buf

import "sync"

// Pool tiers. Reads through a chunking proxy are small, so tiers stop at 64KB.
const (
	Size64  = 1 << 6  // 64 bytes
	Size1K  = 1 << 10 // 1 KB
	Size4K  = 1 << 12 // 4 KB
	Size64K = 1 << 16 // 64 KB
)

var (
	pool64  = sync.Pool{New: func() any { return make([]byte, Size64) }}
	pool1K  = sync.Pool{New: func() any { return make([]byte, Size1K) }}
	pool4K  = sync.Pool{New: func() any { return make([]byte, Size4K) }}
	pool64K = sync.Pool{New: func() any { return make([]byte, Size64K) }}
)

// Get returns a slice of length size, pooled when size fits a tier
func Get(size int) []byte {
	switch {
	case size <= Size64:
		return pool64.Get().([]byte)[:size]
	case size <= Size1K:
		return pool1K.Get().([]byte)[:size]
	case size <= Size4K:
		return pool4K.Get().([]byte)[:size]
	case size <= Size64K:
		return pool64K.Get().([]byte)[:size]
	default:
		return make([]byte, size)
	}
}

// Put returns b to the tier matching its capacity
func Put(b []byte) {
	if b == nil {
		return
	}

	switch cap(b) {
	case Size64:
		pool64.Put(b[:Size64])
	case Size1K:
		pool1K.Put(b[:Size1K])
	case Size4K:
		pool4K.Put(b[:Size4K])
	case Size64K:
		pool64K.Put(b[:Size64K])
	default:
		// not from a pool, left to the GC
	}
}
