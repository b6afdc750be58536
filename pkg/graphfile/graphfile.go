// Package graphfile reads and writes graph and position containers. The
// binary formats are little-endian with a snappy-compressed record block and
// a trailing CRC32; a JSON form covers human-edited inputs.
package graphfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-layout/pkg/layout"
	"github.com/dd0wney/cluso-layout/pkg/pools"
	"github.com/dd0wney/cluso-layout/pkg/wire"
)

// Magic prefixes identify the two container kinds.
const (
	graphMagic    = "CLGF"
	positionMagic = "CLGP"

	// FormatVersion is written into every container; readers reject
	// versions they do not know.
	FormatVersion = 1

	// flagSnappy marks a compressed record block.
	flagSnappy = 1 << 0
)

// Container errors.
var (
	ErrBadMagic           = errors.New("not a layout container")
	ErrUnsupportedVersion = errors.New("unsupported container version")
	ErrCorrupted          = errors.New("corrupted container")
)

// Graph is a bounding box plus the node and edge lists, as stored on disk.
type Graph struct {
	Width  float64
	Height float64
	Nodes  []layout.Node
	Edges  []layout.Edge
}

// graph container layout:
// [Magic:4][Version:1][Flags:1][Width:8][Height:8][NodeCount:4][EdgeCount:4]
// [BlockLen:4][Block][CRC32:4]
// The CRC covers the block as stored, before any decompression.
const graphHeaderSize = 4 + 1 + 1 + 8 + 8 + 4 + 4 + 4

// WriteGraph writes g as a binary container.
func WriteGraph(w io.Writer, g *Graph) error {
	raw := pools.GetBytes(len(g.Nodes)*wire.NodeRecordSize + len(g.Edges)*wire.EdgeRecordSize)
	raw = wire.AppendNodes(raw, g.Nodes)
	raw = wire.AppendEdges(raw, g.Edges)
	defer pools.PutBytes(raw)

	block, flags := compressBlock(raw)

	b := pools.NewBufferBuilder(graphHeaderSize + len(block) + 4)
	defer b.Release()
	b.Write([]byte(graphMagic))
	b.WriteByte(FormatVersion)
	b.WriteByte(flags)
	b.WriteFloat64LE(g.Width)
	b.WriteFloat64LE(g.Height)
	b.WriteUint32LE(uint32(len(g.Nodes)))
	b.WriteUint32LE(uint32(len(g.Edges)))
	b.WriteUint32LE(uint32(len(block)))
	b.Write(block)
	b.WriteUint32LE(crc32.ChecksumIEEE(block))

	_, err := w.Write(b.Bytes())
	return err
}

// ReadGraph parses a binary graph container from r.
func ReadGraph(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodeGraph(data)
}

// ReadGraphFile loads a binary graph container from disk.
func ReadGraphFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeGraph(data)
}

func decodeGraph(data []byte) (*Graph, error) {
	if len(data) < graphHeaderSize+4 {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the fixed header", ErrCorrupted, len(data))
	}
	if string(data[0:4]) != graphMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, data[0:4])
	}
	if data[4] != FormatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, data[4])
	}
	flags := data[5]

	g := &Graph{
		Width:  float64FromLE(data[6:14]),
		Height: float64FromLE(data[14:22]),
	}
	nodeCount := int(binary.LittleEndian.Uint32(data[22:26]))
	edgeCount := int(binary.LittleEndian.Uint32(data[26:30]))
	blockLen := int(binary.LittleEndian.Uint32(data[30:34]))

	if len(data) != graphHeaderSize+blockLen+4 {
		return nil, fmt.Errorf("%w: header says %d block bytes, file carries %d",
			ErrCorrupted, blockLen, len(data)-graphHeaderSize-4)
	}
	block := data[graphHeaderSize : graphHeaderSize+blockLen]

	records, err := verifyBlock(block, data[len(data)-4:], flags)
	if err != nil {
		return nil, err
	}
	if g.Nodes, err = wire.DecodeNodes(records, nodeCount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if g.Edges, err = wire.DecodeEdges(records[nodeCount*wire.NodeRecordSize:], edgeCount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return g, nil
}

// position container layout:
// [Magic:4][Version:1][Flags:1][Count:4][BlockLen:4][Block][CRC32:4]
const positionHeaderSize = 4 + 1 + 1 + 4 + 4

// WritePositions writes a binary position container.
func WritePositions(w io.Writer, positions []layout.Position) error {
	raw := pools.GetBytes(len(positions) * wire.PositionRecordSize)
	raw = wire.AppendPositions(raw, positions)
	defer pools.PutBytes(raw)

	block, flags := compressBlock(raw)

	b := pools.NewBufferBuilder(positionHeaderSize + len(block) + 4)
	defer b.Release()
	b.Write([]byte(positionMagic))
	b.WriteByte(FormatVersion)
	b.WriteByte(flags)
	b.WriteUint32LE(uint32(len(positions)))
	b.WriteUint32LE(uint32(len(block)))
	b.Write(block)
	b.WriteUint32LE(crc32.ChecksumIEEE(block))

	_, err := w.Write(b.Bytes())
	return err
}

// ReadPositions parses a binary position container from r.
func ReadPositions(r io.Reader) ([]layout.Position, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodePositions(data)
}

// ReadPositionsFile loads a binary position container from disk.
func ReadPositionsFile(path string) ([]layout.Position, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodePositions(data)
}

func decodePositions(data []byte) ([]layout.Position, error) {
	if len(data) < positionHeaderSize+4 {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the fixed header", ErrCorrupted, len(data))
	}
	if string(data[0:4]) != positionMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, data[0:4])
	}
	if data[4] != FormatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, data[4])
	}
	flags := data[5]

	count := int(binary.LittleEndian.Uint32(data[6:10]))
	blockLen := int(binary.LittleEndian.Uint32(data[10:14]))
	if len(data) != positionHeaderSize+blockLen+4 {
		return nil, fmt.Errorf("%w: header says %d block bytes, file carries %d",
			ErrCorrupted, blockLen, len(data)-positionHeaderSize-4)
	}
	block := data[positionHeaderSize : positionHeaderSize+blockLen]

	records, err := verifyBlock(block, data[len(data)-4:], flags)
	if err != nil {
		return nil, err
	}
	positions, err := wire.DecodePositions(records, count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return positions, nil
}

// compressBlock snappy-encodes raw when that makes it smaller and reports
// the flags describing what it did.
func compressBlock(raw []byte) ([]byte, byte) {
	compressed := snappy.Encode(nil, raw)
	if len(compressed) < len(raw) {
		return compressed, flagSnappy
	}
	return raw, 0
}

// verifyBlock checks the stored checksum and undoes compression.
func verifyBlock(block, sum []byte, flags byte) ([]byte, error) {
	if crc32.ChecksumIEEE(block) != binary.LittleEndian.Uint32(sum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupted)
	}
	if flags&flagSnappy == 0 {
		return block, nil
	}
	records, err := snappy.Decode(nil, block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return records, nil
}

func float64FromLE(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
