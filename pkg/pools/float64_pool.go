package pools

import (
	"sync"
)

// Float64Pool pools slices of float64 for position and displacement arrays.
// Layout runs allocate four per compute call, so reuse matters for servers
// arranging many small graphs.
type Float64Pool struct {
	small  sync.Pool // <= 256 elements
	medium sync.Pool // <= 4096 elements
	large  sync.Pool // <= 65536 elements
}

// maxPooledFloats caps what Put will retain. Beyond this the slice is left
// for the GC rather than pinned in the pool.
const maxPooledFloats = 1 << 20

// NewFloat64Pool creates a new float64 slice pool.
func NewFloat64Pool() *Float64Pool {
	return &Float64Pool{
		small: sync.Pool{
			New: func() any {
				s := make([]float64, 0, 256)
				return &s
			},
		},
		medium: sync.Pool{
			New: func() any {
				s := make([]float64, 0, 4096)
				return &s
			},
		},
		large: sync.Pool{
			New: func() any {
				s := make([]float64, 0, 65536)
				return &s
			},
		},
	}
}

// Get returns a zeroed float64 slice with the requested length. Pooled
// memory is cleared before reuse so accumulator arrays start clean.
func (p *Float64Pool) Get(size int) []float64 {
	var pool *sync.Pool
	switch {
	case size <= 256:
		pool = &p.small
	case size <= 4096:
		pool = &p.medium
	case size <= 65536:
		pool = &p.large
	default:
		return make([]float64, size)
	}

	sp, ok := pool.Get().(*[]float64)
	if !ok || cap(*sp) < size {
		return make([]float64, size)
	}
	s := (*sp)[:size]
	for i := range s {
		s[i] = 0
	}
	return s
}

// Put returns a float64 slice to the pool.
func (p *Float64Pool) Put(s []float64) {
	c := cap(s)
	if c > maxPooledFloats {
		return
	}

	s = s[:0]

	var pool *sync.Pool
	switch {
	case c <= 256:
		pool = &p.small
	case c <= 4096:
		pool = &p.medium
	case c <= 65536:
		pool = &p.large
	default:
		return
	}

	pool.Put(&s)
}

// Default global float64 pool
var defaultFloat64Pool = NewFloat64Pool()

// GetFloat64s returns a zeroed float64 slice from the default pool.
func GetFloat64s(size int) []float64 {
	return defaultFloat64Pool.Get(size)
}

// PutFloat64s returns a float64 slice to the default pool.
func PutFloat64s(s []float64) {
	defaultFloat64Pool.Put(s)
}
