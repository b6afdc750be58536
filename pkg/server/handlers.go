package server

import (
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-layout/pkg/engine"
	"github.com/dd0wney/cluso-layout/pkg/layout"
	"github.com/dd0wney/cluso-layout/pkg/logging"
	"github.com/dd0wney/cluso-layout/pkg/validation"
	"github.com/dd0wney/cluso-layout/pkg/wire"
)

// handleMessage decodes one request frame and returns the encoded response
// frame. The returned buffer is pooled; the caller releases it after sending.
func (s *Server) handleMessage(raw []byte) []byte {
	start := time.Now()
	s.registry.RequestsInFlight.Inc()
	defer s.registry.RequestsInFlight.Dec()

	var (
		msgType wire.MsgType
		reqID   wire.RequestID
		resp    wire.Message
		status  wire.Status
	)

	frame, err := wire.DecodeFrame(raw)
	if err != nil {
		s.registry.RecordBadFrame()
		s.logger.Warn("discarding undecodable frame",
			logging.Err(err),
			logging.Int("bytes", len(raw)))
		msgType, reqID = salvageHeader(raw)
		status = wire.StatusInternal
		resp = &wire.StatusResponse{Status: status}
	} else {
		if wire.IsCompressed(raw) {
			s.registry.RecordCompressedFrame("inbound")
		}
		msgType, reqID = frame.Type, frame.RequestID
		resp, status = s.dispatch(frame)
	}

	out := wire.EncodeMessage(msgType, reqID, resp)
	if wire.IsCompressed(out) {
		s.registry.RecordCompressedFrame("outbound")
	}
	s.registry.RecordRequest(msgType.String(), status.String(), time.Since(start), len(raw), len(out))

	if status != wire.StatusOK {
		s.logger.Debug("request refused",
			logging.Operation(msgType.String()),
			logging.RequestID(uuid.UUID(reqID).String()),
			logging.String("status", status.String()),
			logging.Latency(time.Since(start)))
	}
	return out
}

// salvageHeader pulls what it can from an undecodable frame so the error
// reply still correlates: type and request id sit before the checksummed
// region.
func salvageHeader(raw []byte) (wire.MsgType, wire.RequestID) {
	var id wire.RequestID
	t := wire.MsgPing
	if len(raw) >= 1 {
		t = wire.MsgType(raw[0])
	}
	if len(raw) >= 18 {
		copy(id[:], raw[2:18])
	}
	return t, id
}

// dispatch routes one frame. A handler panic answers internal instead of
// killing the worker loop.
func (s *Server) dispatch(f wire.Frame) (resp wire.Message, status wire.Status) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic",
				logging.Operation(f.Type.String()),
				logging.RequestID(uuid.UUID(f.RequestID).String()),
				logging.Any("panic", r))
			status = wire.StatusInternal
			resp = &wire.StatusResponse{Status: status}
		}
	}()

	switch f.Type {
	case wire.MsgCreate:
		return s.handleCreate(f.Payload)
	case wire.MsgCompute:
		return s.handleCompute(f.Payload)
	case wire.MsgDestroy:
		return s.handleDestroy(f.Payload)
	case wire.MsgStats:
		return s.handleStats()
	case wire.MsgPing:
		return &wire.StatusResponse{Status: wire.StatusOK}, wire.StatusOK
	default:
		s.logger.Warn("unknown message type", logging.Int("type", int(f.Type)))
		return &wire.StatusResponse{Status: wire.StatusInternal}, wire.StatusInternal
	}
}

func (s *Server) handleCreate(payload []byte) (wire.Message, wire.Status) {
	req, err := wire.DecodeCreateRequest(payload)
	if err != nil {
		return &wire.CreateResponse{Status: wire.StatusInternal}, wire.StatusInternal
	}

	h, err := s.engine.Create(req.Nodes, req.Edges, req.Width, req.Height)
	if err != nil {
		st := wire.StatusFromError(err)
		return &wire.CreateResponse{Status: st}, st
	}

	accepted, _ := s.engine.NodeCount(h)
	kept, _ := s.engine.EdgeCount(h)
	s.registry.RecordSessionCreated(len(req.Nodes)-accepted, len(req.Edges)-kept)
	s.registry.SetActiveSessions(s.engine.Stats().ActiveSessions)

	return &wire.CreateResponse{
		Status:        wire.StatusOK,
		Handle:        uint64(h),
		AcceptedNodes: uint32(accepted),
	}, wire.StatusOK
}

func (s *Server) handleCompute(payload []byte) (wire.Message, wire.Status) {
	req, err := wire.DecodeComputeRequest(payload)
	if err != nil {
		return &wire.ComputeResponse{Status: wire.StatusInternal}, wire.StatusInternal
	}

	if err := validation.ValidateComputeParams(req.MaxIterations, req.InitialTemperature); err != nil {
		// Oversized iteration counts are refused as resource abuse.
		return &wire.ComputeResponse{Status: wire.StatusAllocationFailure}, wire.StatusAllocationFailure
	}

	h := engine.Handle(req.Handle)

	// The declared capacity is checked against the session before any
	// allocation, so a hostile capacity cannot size a buffer here.
	nodes, err := s.engine.NodeCount(h)
	if err != nil {
		st := wire.StatusFromError(err)
		return &wire.ComputeResponse{Status: st}, st
	}
	if int(req.Capacity) < nodes {
		return &wire.ComputeResponse{Status: wire.StatusInsufficientBuffer}, wire.StatusInsufficientBuffer
	}

	start := time.Now()
	out := make([]layout.Position, nodes)
	n, err := s.engine.Compute(s.computeCtx, h, layout.ComputeOptions{
		MaxIterations:      int(req.MaxIterations),
		InitialTemperature: req.InitialTemperature,
	}, out)
	if err != nil {
		st := wire.StatusFromError(err)
		s.registry.RecordCompute(st.String(), time.Since(start), int(req.MaxIterations), 0)
		return &wire.ComputeResponse{Status: st}, st
	}

	s.registry.RecordCompute("ok", time.Since(start), int(req.MaxIterations), n)
	return &wire.ComputeResponse{Status: wire.StatusOK, Positions: out[:n]}, wire.StatusOK
}

func (s *Server) handleDestroy(payload []byte) (wire.Message, wire.Status) {
	req, err := wire.DecodeDestroyRequest(payload)
	if err != nil {
		return &wire.StatusResponse{Status: wire.StatusInternal}, wire.StatusInternal
	}

	if err := s.engine.Destroy(engine.Handle(req.Handle)); err != nil {
		st := wire.StatusFromError(err)
		return &wire.StatusResponse{Status: st}, st
	}

	s.registry.RecordSessionDestroyed()
	s.registry.SetActiveSessions(s.engine.Stats().ActiveSessions)
	return &wire.StatusResponse{Status: wire.StatusOK}, wire.StatusOK
}

func (s *Server) handleStats() (wire.Message, wire.Status) {
	st := s.engine.Stats()
	return &wire.StatsResponse{
		Status:         wire.StatusOK,
		ActiveSessions: uint32(st.ActiveSessions),
		Created:        st.Created,
		Destroyed:      st.Destroyed,
		Computes:       st.Computes,
		Evicted:        st.Evicted,
		UptimeSeconds:  uint64(time.Since(s.started).Seconds()),
	}, wire.StatusOK
}
