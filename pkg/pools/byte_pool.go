package pools

import (
	"sync"
)

// Buffer size classes tuned to wire traffic: frame headers, single-record
// payloads, and full graph snapshots.
const (
	HeaderSize = 64      // Frame headers and status-only payloads
	SmallSize  = 512     // Payloads of a few records
	MediumSize = 8192    // Typical interactive graphs
	LargeSize  = 65536   // Large graphs before compression
	HugeSize   = 1 << 20 // Batch snapshots
	MaxPool    = 1 << 22 // Don't pool buffers larger than this
)

// BytePool provides size-class based pooling for byte slices. Encoding a
// request and decoding its response each borrow a scratch buffer, so reuse
// keeps steady-state serving allocation-free.
type BytePool struct {
	header sync.Pool // <= 64 bytes
	small  sync.Pool // <= 512 bytes
	medium sync.Pool // <= 8192 bytes
	large  sync.Pool // <= 65536 bytes
	huge   sync.Pool // <= 1 MiB
}

// NewBytePool creates a new byte pool.
func NewBytePool() *BytePool {
	return &BytePool{
		header: sync.Pool{
			New: func() any {
				b := make([]byte, 0, HeaderSize)
				return &b
			},
		},
		small: sync.Pool{
			New: func() any {
				b := make([]byte, 0, SmallSize)
				return &b
			},
		},
		medium: sync.Pool{
			New: func() any {
				b := make([]byte, 0, MediumSize)
				return &b
			},
		},
		large: sync.Pool{
			New: func() any {
				b := make([]byte, 0, LargeSize)
				return &b
			},
		},
		huge: sync.Pool{
			New: func() any {
				b := make([]byte, 0, HugeSize)
				return &b
			},
		},
	}
}

// Get returns a byte slice with at least the requested capacity and length
// zero.
func (p *BytePool) Get(size int) []byte {
	var pool *sync.Pool
	switch {
	case size <= HeaderSize:
		pool = &p.header
	case size <= SmallSize:
		pool = &p.small
	case size <= MediumSize:
		pool = &p.medium
	case size <= LargeSize:
		pool = &p.large
	case size <= HugeSize:
		pool = &p.huge
	default:
		return make([]byte, 0, size)
	}

	bp, ok := pool.Get().(*[]byte)
	if !ok || cap(*bp) < size {
		return make([]byte, 0, size)
	}
	return (*bp)[:0]
}

// GetSized returns a byte slice with exactly the requested length. Contents
// are unspecified; callers overwrite every byte.
func (p *BytePool) GetSized(size int) []byte {
	b := p.Get(size)
	return b[:size]
}

// Put returns a byte slice to the pool for reuse. Slices larger than
// MaxPool are not pooled.
func (p *BytePool) Put(b []byte) {
	c := cap(b)
	if c > MaxPool {
		return
	}

	b = b[:0]

	var pool *sync.Pool
	switch {
	case c <= HeaderSize:
		pool = &p.header
	case c <= SmallSize:
		pool = &p.small
	case c <= MediumSize:
		pool = &p.medium
	case c <= LargeSize:
		pool = &p.large
	case c <= HugeSize:
		pool = &p.huge
	default:
		return
	}

	pool.Put(&b)
}

// Default global byte pool
var defaultBytePool = NewBytePool()

// GetBytes returns a byte slice from the default pool.
func GetBytes(size int) []byte {
	return defaultBytePool.Get(size)
}

// GetBytesSized returns a byte slice with exact length from the default pool.
func GetBytesSized(size int) []byte {
	return defaultBytePool.GetSized(size)
}

// PutBytes returns a byte slice to the default pool.
func PutBytes(b []byte) {
	defaultBytePool.Put(b)
}
