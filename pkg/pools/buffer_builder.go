package pools

import "math"

// BufferBuilder assembles wire payloads against the default byte pool. All
// multi-byte writers are little-endian, matching the record formats the
// codec emits.
type BufferBuilder struct {
	buf  []byte
	pool *BytePool
}

// NewBufferBuilder creates a new buffer builder with the given initial capacity.
func NewBufferBuilder(initialCap int) *BufferBuilder {
	return &BufferBuilder{
		buf:  defaultBytePool.Get(initialCap),
		pool: defaultBytePool,
	}
}

// Write appends bytes to the buffer.
func (b *BufferBuilder) Write(p []byte) {
	b.buf = append(b.buf, p...)
}

// WriteByte appends a single byte.
func (b *BufferBuilder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteUint32LE appends a uint32 in little-endian order.
func (b *BufferBuilder) WriteUint32LE(v uint32) {
	b.buf = append(b.buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
	)
}

// WriteUint64LE appends a uint64 in little-endian order.
func (b *BufferBuilder) WriteUint64LE(v uint64) {
	b.buf = append(b.buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// WriteInt32LE appends an int32 in little-endian two's complement.
func (b *BufferBuilder) WriteInt32LE(v int32) {
	b.WriteUint32LE(uint32(v))
}

// WriteFloat64LE appends an IEEE 754 double in little-endian order.
func (b *BufferBuilder) WriteFloat64LE(v float64) {
	b.WriteUint64LE(math.Float64bits(v))
}

// Bytes returns the built buffer. After calling Bytes, the builder should not be used.
func (b *BufferBuilder) Bytes() []byte {
	return b.buf
}

// Len returns the current length of the buffer.
func (b *BufferBuilder) Len() int {
	return len(b.buf)
}

// Reset resets the buffer for reuse.
func (b *BufferBuilder) Reset() {
	b.buf = b.buf[:0]
}

// Release returns the buffer to the pool. After Release, the builder should not be used.
func (b *BufferBuilder) Release() {
	if b.pool != nil && b.buf != nil {
		b.pool.Put(b.buf)
	}
	b.buf = nil
}
