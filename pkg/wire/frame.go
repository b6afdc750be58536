package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-layout/pkg/pools"
)

// MsgType identifies a request; responses echo the type of the request they
// answer.
type MsgType uint8

const (
	MsgCreate MsgType = iota
	MsgCompute
	MsgDestroy
	MsgStats
	MsgPing
)

// String names the message type for logs and metric labels.
func (t MsgType) String() string {
	switch t {
	case MsgCreate:
		return "create"
	case MsgCompute:
		return "compute"
	case MsgDestroy:
		return "destroy"
	case MsgStats:
		return "stats"
	case MsgPing:
		return "ping"
	default:
		return fmt.Sprintf("type_%d", uint8(t))
	}
}

// Frame layout: [Type:1][Flags:1][RequestID:16][PayloadLen:4][Payload][CRC32:4].
// The checksum covers the payload exactly as transmitted, so a compressed
// payload is checked before decompression.
const (
	frameHeaderSize  = 1 + 1 + 16 + 4
	frameTrailerSize = 4

	// FrameOverhead is the fixed cost of framing a payload.
	FrameOverhead = frameHeaderSize + frameTrailerSize

	// flagSnappy marks a snappy-compressed payload.
	flagSnappy = 1 << 0
)

// Framing errors.
var (
	ErrTruncated        = errors.New("truncated message")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrLengthMismatch   = errors.New("payload length mismatch")
)

// RequestID correlates a response with its request. Clients fill it with a
// UUID; the server echoes it untouched.
type RequestID [16]byte

// Frame is one decoded protocol message.
type Frame struct {
	Type      MsgType
	RequestID RequestID
	Payload   []byte
}

// AppendFrame appends the encoded frame to dst and returns the extended
// slice. The payload is snappy-compressed when that makes it smaller.
func AppendFrame(dst []byte, f Frame) []byte {
	payload := f.Payload
	var flags byte

	if len(payload) > 0 {
		scratch := pools.GetBytesSized(snappy.MaxEncodedLen(len(payload)))
		compressed := snappy.Encode(scratch, payload)
		if len(compressed) < len(payload) {
			flags |= flagSnappy
			payload = compressed
		}
		defer pools.PutBytes(scratch)
	}

	dst = append(dst, byte(f.Type), flags)
	dst = append(dst, f.RequestID[:]...)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload)))
	dst = append(dst, payload...)
	return binary.LittleEndian.AppendUint32(dst, crc32.ChecksumIEEE(payload))
}

// IsCompressed reports whether an encoded frame carries a snappy payload,
// without decoding it.
func IsCompressed(msg []byte) bool {
	return len(msg) >= 2 && msg[1]&flagSnappy != 0
}

// DecodeFrame parses one message. The returned payload aliases msg when the
// frame was not compressed, so it is only valid as long as msg is.
func DecodeFrame(msg []byte) (Frame, error) {
	if len(msg) < FrameOverhead {
		return Frame{}, fmt.Errorf("%w: frame needs at least %d bytes, have %d", ErrTruncated, FrameOverhead, len(msg))
	}

	var f Frame
	f.Type = MsgType(msg[0])
	flags := msg[1]
	copy(f.RequestID[:], msg[2:18])

	payloadLen := binary.LittleEndian.Uint32(msg[18:22])
	if uint32(len(msg)-FrameOverhead) != payloadLen {
		return Frame{}, fmt.Errorf("%w: header says %d payload bytes, frame carries %d",
			ErrLengthMismatch, payloadLen, len(msg)-FrameOverhead)
	}

	payload := msg[frameHeaderSize : frameHeaderSize+int(payloadLen)]
	sum := binary.LittleEndian.Uint32(msg[len(msg)-frameTrailerSize:])
	if crc32.ChecksumIEEE(payload) != sum {
		return Frame{}, ErrChecksumMismatch
	}

	if flags&flagSnappy != 0 {
		decoded, err := snappy.Decode(nil, payload)
		if err != nil {
			return Frame{}, fmt.Errorf("decompress payload: %w", err)
		}
		payload = decoded
	}
	f.Payload = payload
	return f, nil
}
