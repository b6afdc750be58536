// Package wire defines the fixed-layout records, status codes, and framed
// messages that cross the process boundary. Every multi-byte field is
// little-endian and packed; record sizes are load-bearing constants that the
// host side mirrors.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-layout/pkg/layout"
)

// Record sizes in bytes. These are part of the protocol, not an
// implementation detail.
const (
	// NodeRecordSize is id int32 | x float64 | y float64 | flags uint8.
	NodeRecordSize = 4 + 8 + 8 + 1

	// EdgeRecordSize is from int32 | to int32 | intensity float64.
	EdgeRecordSize = 4 + 4 + 8

	// PositionRecordSize is id int32 | x float64 | y float64.
	PositionRecordSize = 4 + 8 + 8
)

// nodeFlagFixed marks a node that must not move during simulation.
const nodeFlagFixed = 1 << 0

// AppendNode appends the 21-byte record for n to dst.
func AppendNode(dst []byte, n layout.Node) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(n.ID))
	dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(n.X))
	dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(n.Y))
	var flags byte
	if n.Fixed {
		flags |= nodeFlagFixed
	}
	return append(dst, flags)
}

// DecodeNode reads one node record from the front of b.
func DecodeNode(b []byte) (layout.Node, error) {
	if len(b) < NodeRecordSize {
		return layout.Node{}, fmt.Errorf("%w: node record needs %d bytes, have %d", ErrTruncated, NodeRecordSize, len(b))
	}
	return layout.Node{
		ID:    int32(binary.LittleEndian.Uint32(b[0:4])),
		X:     math.Float64frombits(binary.LittleEndian.Uint64(b[4:12])),
		Y:     math.Float64frombits(binary.LittleEndian.Uint64(b[12:20])),
		Fixed: b[20]&nodeFlagFixed != 0,
	}, nil
}

// AppendEdge appends the 16-byte record for e to dst.
func AppendEdge(dst []byte, e layout.Edge) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(e.From))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(e.To))
	return binary.LittleEndian.AppendUint64(dst, math.Float64bits(e.Intensity))
}

// DecodeEdge reads one edge record from the front of b.
func DecodeEdge(b []byte) (layout.Edge, error) {
	if len(b) < EdgeRecordSize {
		return layout.Edge{}, fmt.Errorf("%w: edge record needs %d bytes, have %d", ErrTruncated, EdgeRecordSize, len(b))
	}
	return layout.Edge{
		From:      int32(binary.LittleEndian.Uint32(b[0:4])),
		To:        int32(binary.LittleEndian.Uint32(b[4:8])),
		Intensity: math.Float64frombits(binary.LittleEndian.Uint64(b[8:16])),
	}, nil
}

// AppendPosition appends the 20-byte record for p to dst.
func AppendPosition(dst []byte, p layout.Position) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(p.ID))
	dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(p.X))
	return binary.LittleEndian.AppendUint64(dst, math.Float64bits(p.Y))
}

// DecodePosition reads one position record from the front of b.
func DecodePosition(b []byte) (layout.Position, error) {
	if len(b) < PositionRecordSize {
		return layout.Position{}, fmt.Errorf("%w: position record needs %d bytes, have %d", ErrTruncated, PositionRecordSize, len(b))
	}
	return layout.Position{
		ID: int32(binary.LittleEndian.Uint32(b[0:4])),
		X:  math.Float64frombits(binary.LittleEndian.Uint64(b[4:12])),
		Y:  math.Float64frombits(binary.LittleEndian.Uint64(b[12:20])),
	}, nil
}

// AppendNodes appends records for all nodes in order.
func AppendNodes(dst []byte, nodes []layout.Node) []byte {
	for _, n := range nodes {
		dst = AppendNode(dst, n)
	}
	return dst
}

// DecodeNodes reads exactly count node records from the front of b.
func DecodeNodes(b []byte, count int) ([]layout.Node, error) {
	if need := count * NodeRecordSize; len(b) < need {
		return nil, fmt.Errorf("%w: %d node records need %d bytes, have %d", ErrTruncated, count, need, len(b))
	}
	nodes := make([]layout.Node, count)
	for i := range nodes {
		n, err := DecodeNode(b[i*NodeRecordSize:])
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

// AppendEdges appends records for all edges in order.
func AppendEdges(dst []byte, edges []layout.Edge) []byte {
	for _, e := range edges {
		dst = AppendEdge(dst, e)
	}
	return dst
}

// DecodeEdges reads exactly count edge records from the front of b.
func DecodeEdges(b []byte, count int) ([]layout.Edge, error) {
	if need := count * EdgeRecordSize; len(b) < need {
		return nil, fmt.Errorf("%w: %d edge records need %d bytes, have %d", ErrTruncated, count, need, len(b))
	}
	edges := make([]layout.Edge, count)
	for i := range edges {
		e, err := DecodeEdge(b[i*EdgeRecordSize:])
		if err != nil {
			return nil, err
		}
		edges[i] = e
	}
	return edges, nil
}

// AppendPositions appends records for all positions in order.
func AppendPositions(dst []byte, positions []layout.Position) []byte {
	for _, p := range positions {
		dst = AppendPosition(dst, p)
	}
	return dst
}

// DecodePositions reads exactly count position records from the front of b.
func DecodePositions(b []byte, count int) ([]layout.Position, error) {
	if need := count * PositionRecordSize; len(b) < need {
		return nil, fmt.Errorf("%w: %d position records need %d bytes, have %d", ErrTruncated, count, need, len(b))
	}
	positions := make([]layout.Position, count)
	for i := range positions {
		p, err := DecodePosition(b[i*PositionRecordSize:])
		if err != nil {
			return nil, err
		}
		positions[i] = p
	}
	return positions, nil
}
