package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-layout/pkg/layout"
	"github.com/dd0wney/cluso-layout/pkg/pools"
)

// Message is a payload that knows its exact encoded size. Sizes are exact
// because every layout is fixed fields plus counted records, which lets
// encoding borrow right-sized pooled buffers.
type Message interface {
	EncodedSize() int
	AppendPayload(dst []byte) []byte
}

// EncodeMessage frames m into a pooled buffer. A nil m encodes an empty
// payload, used by stats and ping requests. The caller releases the returned
// buffer with pools.PutBytes after sending.
func EncodeMessage(t MsgType, id RequestID, m Message) []byte {
	var payload []byte
	if m != nil {
		payload = pools.GetBytes(m.EncodedSize())
		payload = m.AppendPayload(payload)
		defer pools.PutBytes(payload)
	}
	out := pools.GetBytes(FrameOverhead + len(payload))
	return AppendFrame(out, Frame{Type: t, RequestID: id, Payload: payload})
}

// DecodeStatus reads the status that begins every response payload.
func DecodeStatus(p []byte) (Status, error) {
	if len(p) < 4 {
		return 0, fmt.Errorf("%w: response needs a 4-byte status, have %d bytes", ErrTruncated, len(p))
	}
	return Status(binary.LittleEndian.Uint32(p)), nil
}

// CreateRequest carries a whole graph and its bounding box.
// Layout: width f64 | height f64 | nodeCount u32 | edgeCount u32 | nodes | edges.
type CreateRequest struct {
	Width  float64
	Height float64
	Nodes  []layout.Node
	Edges  []layout.Edge
}

func (r *CreateRequest) EncodedSize() int {
	return 8 + 8 + 4 + 4 + len(r.Nodes)*NodeRecordSize + len(r.Edges)*EdgeRecordSize
}

func (r *CreateRequest) AppendPayload(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(r.Width))
	dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(r.Height))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(r.Nodes)))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(r.Edges)))
	dst = AppendNodes(dst, r.Nodes)
	return AppendEdges(dst, r.Edges)
}

// DecodeCreateRequest parses a create payload.
func DecodeCreateRequest(p []byte) (CreateRequest, error) {
	const fixed = 8 + 8 + 4 + 4
	if len(p) < fixed {
		return CreateRequest{}, fmt.Errorf("%w: create request needs %d fixed bytes, have %d", ErrTruncated, fixed, len(p))
	}
	r := CreateRequest{
		Width:  math.Float64frombits(binary.LittleEndian.Uint64(p[0:8])),
		Height: math.Float64frombits(binary.LittleEndian.Uint64(p[8:16])),
	}
	nodeCount := int(binary.LittleEndian.Uint32(p[16:20]))
	edgeCount := int(binary.LittleEndian.Uint32(p[20:24]))

	var err error
	rest := p[fixed:]
	if r.Nodes, err = DecodeNodes(rest, nodeCount); err != nil {
		return CreateRequest{}, err
	}
	if r.Edges, err = DecodeEdges(rest[nodeCount*NodeRecordSize:], edgeCount); err != nil {
		return CreateRequest{}, err
	}
	return r, nil
}

// CreateResponse reports the issued handle.
// Layout: status u32 | handle u64 | acceptedNodes u32.
type CreateResponse struct {
	Status        Status
	Handle        uint64
	AcceptedNodes uint32
}

func (r *CreateResponse) EncodedSize() int { return 4 + 8 + 4 }

func (r *CreateResponse) AppendPayload(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(r.Status))
	dst = binary.LittleEndian.AppendUint64(dst, r.Handle)
	return binary.LittleEndian.AppendUint32(dst, r.AcceptedNodes)
}

// DecodeCreateResponse parses a create response payload.
func DecodeCreateResponse(p []byte) (CreateResponse, error) {
	if len(p) < 16 {
		return CreateResponse{}, fmt.Errorf("%w: create response needs 16 bytes, have %d", ErrTruncated, len(p))
	}
	return CreateResponse{
		Status:        Status(binary.LittleEndian.Uint32(p[0:4])),
		Handle:        binary.LittleEndian.Uint64(p[4:12]),
		AcceptedNodes: binary.LittleEndian.Uint32(p[12:16]),
	}, nil
}

// ComputeRequest names a handle and the simulation parameters.
// Layout: handle u64 | maxIterations i32 | initialTemperature f64 | capacity u32.
// Capacity is the caller's output buffer size, checked server-side against
// the session's node count before any work runs.
type ComputeRequest struct {
	Handle             uint64
	MaxIterations      int32
	InitialTemperature float64
	Capacity           uint32
}

func (r *ComputeRequest) EncodedSize() int { return 8 + 4 + 8 + 4 }

func (r *ComputeRequest) AppendPayload(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, r.Handle)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(r.MaxIterations))
	dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(r.InitialTemperature))
	return binary.LittleEndian.AppendUint32(dst, r.Capacity)
}

// DecodeComputeRequest parses a compute payload.
func DecodeComputeRequest(p []byte) (ComputeRequest, error) {
	if len(p) < 24 {
		return ComputeRequest{}, fmt.Errorf("%w: compute request needs 24 bytes, have %d", ErrTruncated, len(p))
	}
	return ComputeRequest{
		Handle:             binary.LittleEndian.Uint64(p[0:8]),
		MaxIterations:      int32(binary.LittleEndian.Uint32(p[8:12])),
		InitialTemperature: math.Float64frombits(binary.LittleEndian.Uint64(p[12:20])),
		Capacity:           binary.LittleEndian.Uint32(p[20:24]),
	}, nil
}

// ComputeResponse carries one position record per accepted node.
// Layout: status u32 | count u32 | positions.
type ComputeResponse struct {
	Status    Status
	Positions []layout.Position
}

func (r *ComputeResponse) EncodedSize() int {
	return 4 + 4 + len(r.Positions)*PositionRecordSize
}

func (r *ComputeResponse) AppendPayload(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(r.Status))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(r.Positions)))
	return AppendPositions(dst, r.Positions)
}

// DecodeComputeResponse parses a compute response payload.
func DecodeComputeResponse(p []byte) (ComputeResponse, error) {
	if len(p) < 8 {
		return ComputeResponse{}, fmt.Errorf("%w: compute response needs 8 fixed bytes, have %d", ErrTruncated, len(p))
	}
	r := ComputeResponse{Status: Status(binary.LittleEndian.Uint32(p[0:4]))}
	count := int(binary.LittleEndian.Uint32(p[4:8]))

	var err error
	if r.Positions, err = DecodePositions(p[8:], count); err != nil {
		return ComputeResponse{}, err
	}
	return r, nil
}

// DestroyRequest names the handle to release.
// Layout: handle u64.
type DestroyRequest struct {
	Handle uint64
}

func (r *DestroyRequest) EncodedSize() int { return 8 }

func (r *DestroyRequest) AppendPayload(dst []byte) []byte {
	return binary.LittleEndian.AppendUint64(dst, r.Handle)
}

// DecodeDestroyRequest parses a destroy payload.
func DecodeDestroyRequest(p []byte) (DestroyRequest, error) {
	if len(p) < 8 {
		return DestroyRequest{}, fmt.Errorf("%w: destroy request needs 8 bytes, have %d", ErrTruncated, len(p))
	}
	return DestroyRequest{Handle: binary.LittleEndian.Uint64(p[0:8])}, nil
}

// StatusResponse is the status-only payload answering destroy and ping.
type StatusResponse struct {
	Status Status
}

func (r *StatusResponse) EncodedSize() int { return 4 }

func (r *StatusResponse) AppendPayload(dst []byte) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(r.Status))
}

// DecodeStatusResponse parses a status-only response payload.
func DecodeStatusResponse(p []byte) (StatusResponse, error) {
	s, err := DecodeStatus(p)
	if err != nil {
		return StatusResponse{}, err
	}
	return StatusResponse{Status: s}, nil
}

// StatsResponse snapshots the daemon's counters.
// Layout: status u32 | active u32 | created u64 | destroyed u64 |
// computes u64 | evicted u64 | uptimeSeconds u64.
type StatsResponse struct {
	Status         Status
	ActiveSessions uint32
	Created        uint64
	Destroyed      uint64
	Computes       uint64
	Evicted        uint64
	UptimeSeconds  uint64
}

func (r *StatsResponse) EncodedSize() int { return 4 + 4 + 8*5 }

func (r *StatsResponse) AppendPayload(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(r.Status))
	dst = binary.LittleEndian.AppendUint32(dst, r.ActiveSessions)
	dst = binary.LittleEndian.AppendUint64(dst, r.Created)
	dst = binary.LittleEndian.AppendUint64(dst, r.Destroyed)
	dst = binary.LittleEndian.AppendUint64(dst, r.Computes)
	dst = binary.LittleEndian.AppendUint64(dst, r.Evicted)
	return binary.LittleEndian.AppendUint64(dst, r.UptimeSeconds)
}

// DecodeStatsResponse parses a stats response payload.
func DecodeStatsResponse(p []byte) (StatsResponse, error) {
	if len(p) < 48 {
		return StatsResponse{}, fmt.Errorf("%w: stats response needs 48 bytes, have %d", ErrTruncated, len(p))
	}
	return StatsResponse{
		Status:         Status(binary.LittleEndian.Uint32(p[0:4])),
		ActiveSessions: binary.LittleEndian.Uint32(p[4:8]),
		Created:        binary.LittleEndian.Uint64(p[8:16]),
		Destroyed:      binary.LittleEndian.Uint64(p[16:24]),
		Computes:       binary.LittleEndian.Uint64(p[24:32]),
		Evicted:        binary.LittleEndian.Uint64(p[32:40]),
		UptimeSeconds:  binary.LittleEndian.Uint64(p[40:48]),
	}, nil
}
