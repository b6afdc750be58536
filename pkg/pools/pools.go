// Package pools provides object pooling for reducing GC pressure.
//
// This package contains pool implementations for the types the layout
// engine allocates on every compute and every wire round trip:
//
//   - Float64Pool: Position and displacement arrays
//   - BytePool: Size-class based byte slice pooling for frames
//   - BufferBuilder: Little-endian payload construction with pooling
package pools
