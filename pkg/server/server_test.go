package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-layout/pkg/layout"
	"github.com/dd0wney/cluso-layout/pkg/metrics"
	"github.com/dd0wney/cluso-layout/pkg/transport"
	"github.com/dd0wney/cluso-layout/pkg/wire"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AdminAddr = "" // no HTTP listener in unit tests
	cfg.SweepInterval = time.Second
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New(testConfig(), nil, metrics.NewRegistry())
	t.Cleanup(func() { s.engine.Close() })
	return s
}

func newID() wire.RequestID {
	return wire.RequestID(uuid.New())
}

// roundTrip pushes an encoded request through the handler and decodes the
// response frame, asserting the request id came back untouched.
func roundTrip(t *testing.T, s *Server, msgType wire.MsgType, req wire.Message) wire.Frame {
	t.Helper()
	id := newID()
	raw := wire.EncodeMessage(msgType, id, req)
	out := s.handleMessage(raw)

	frame, err := wire.DecodeFrame(out)
	require.NoError(t, err, "response frame must decode")
	assert.Equal(t, msgType, frame.Type, "response must echo the request type")
	assert.Equal(t, id, frame.RequestID, "response must echo the request id")
	return frame
}

func testNodes() []layout.Node {
	return []layout.Node{
		{ID: 1, X: 10, Y: 10},
		{ID: 2, X: 20, Y: 20},
		{ID: 3, X: 30, Y: 30},
	}
}

func testEdges() []layout.Edge {
	return []layout.Edge{
		{From: 1, To: 2, Intensity: 50},
		{From: 2, To: 3, Intensity: 50},
	}
}

func createSession(t *testing.T, s *Server) uint64 {
	t.Helper()
	frame := roundTrip(t, s, wire.MsgCreate, &wire.CreateRequest{
		Width: 400, Height: 300,
		Nodes: testNodes(), Edges: testEdges(),
	})
	resp, err := wire.DecodeCreateResponse(frame.Payload)
	require.NoError(t, err)
	require.Equal(t, wire.StatusOK, resp.Status)
	require.NotZero(t, resp.Handle)
	return resp.Handle
}

func TestPing(t *testing.T) {
	s := newTestServer(t)

	frame := roundTrip(t, s, wire.MsgPing, nil)
	resp, err := wire.DecodeStatusResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusOK, resp.Status)
}

func TestCreateComputeDestroy(t *testing.T) {
	s := newTestServer(t)

	handle := createSession(t, s)

	frame := roundTrip(t, s, wire.MsgCompute, &wire.ComputeRequest{
		Handle:             handle,
		MaxIterations:      100,
		InitialTemperature: 5.0,
		Capacity:           3,
	})
	comp, err := wire.DecodeComputeResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusOK, comp.Status)
	assert.Len(t, comp.Positions, 3, "one position per accepted node")

	seen := make(map[int32]bool)
	for _, p := range comp.Positions {
		seen[p.ID] = true
	}
	assert.Len(t, seen, 3, "each node appears exactly once")

	frame = roundTrip(t, s, wire.MsgDestroy, &wire.DestroyRequest{Handle: handle})
	destroy, err := wire.DecodeStatusResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusOK, destroy.Status)
}

func TestCreateInvalidDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height float64
	}{
		{"zero width", 0, 300},
		{"negative height", 400, -5},
		{"nan width", nan(), 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			frame := roundTrip(t, s, wire.MsgCreate, &wire.CreateRequest{
				Width: tt.width, Height: tt.height,
				Nodes: testNodes(),
			})
			resp, err := wire.DecodeCreateResponse(frame.Payload)
			require.NoError(t, err)
			assert.Equal(t, wire.StatusInvalidDimensions, resp.Status)
			assert.Zero(t, resp.Handle, "no handle on refusal")
		})
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestComputeUnknownHandle(t *testing.T) {
	s := newTestServer(t)

	frame := roundTrip(t, s, wire.MsgCompute, &wire.ComputeRequest{
		Handle: 42, MaxIterations: 10, InitialTemperature: 5, Capacity: 16,
	})
	resp, err := wire.DecodeComputeResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusInvalidHandle, resp.Status)
	assert.Empty(t, resp.Positions)
}

func TestComputeInsufficientCapacity(t *testing.T) {
	s := newTestServer(t)
	handle := createSession(t, s)

	frame := roundTrip(t, s, wire.MsgCompute, &wire.ComputeRequest{
		Handle: handle, MaxIterations: 10, InitialTemperature: 5,
		Capacity: 2, // three nodes live in the session
	})
	resp, err := wire.DecodeComputeResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusInsufficientBuffer, resp.Status)

	// The session survives a refused compute.
	frame = roundTrip(t, s, wire.MsgCompute, &wire.ComputeRequest{
		Handle: handle, MaxIterations: 10, InitialTemperature: 5, Capacity: 3,
	})
	resp, err = wire.DecodeComputeResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusOK, resp.Status)
}

func TestComputeOversizedIterationsRefused(t *testing.T) {
	s := newTestServer(t)
	handle := createSession(t, s)

	frame := roundTrip(t, s, wire.MsgCompute, &wire.ComputeRequest{
		Handle:             handle,
		MaxIterations:      2_000_000,
		InitialTemperature: 5,
		Capacity:           3,
	})
	resp, err := wire.DecodeComputeResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusAllocationFailure, resp.Status)
}

func TestDestroyTwice(t *testing.T) {
	s := newTestServer(t)
	handle := createSession(t, s)

	frame := roundTrip(t, s, wire.MsgDestroy, &wire.DestroyRequest{Handle: handle})
	first, err := wire.DecodeStatusResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusOK, first.Status)

	frame = roundTrip(t, s, wire.MsgDestroy, &wire.DestroyRequest{Handle: handle})
	second, err := wire.DecodeStatusResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusInvalidHandle, second.Status)
}

func TestStatsReflectLifecycle(t *testing.T) {
	s := newTestServer(t)

	h1 := createSession(t, s)
	h2 := createSession(t, s)
	roundTrip(t, s, wire.MsgDestroy, &wire.DestroyRequest{Handle: h1})

	frame := roundTrip(t, s, wire.MsgStats, nil)
	stats, err := wire.DecodeStatsResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusOK, stats.Status)
	assert.Equal(t, uint32(1), stats.ActiveSessions)
	assert.Equal(t, uint64(2), stats.Created)
	assert.Equal(t, uint64(1), stats.Destroyed)

	roundTrip(t, s, wire.MsgDestroy, &wire.DestroyRequest{Handle: h2})
}

func TestBadFrameAnswersInternal(t *testing.T) {
	s := newTestServer(t)

	id := newID()
	raw := wire.EncodeMessage(wire.MsgPing, id, nil)
	raw[len(raw)-1] ^= 0xFF // break the checksum

	out := s.handleMessage(raw)
	frame, err := wire.DecodeFrame(out)
	require.NoError(t, err)
	assert.Equal(t, wire.MsgPing, frame.Type)
	assert.Equal(t, id, frame.RequestID, "salvaged id still correlates the error")

	resp, err := wire.DecodeStatusResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusInternal, resp.Status)
}

func TestUnknownMessageType(t *testing.T) {
	s := newTestServer(t)

	id := newID()
	raw := wire.AppendFrame(nil, wire.Frame{Type: wire.MsgType(99), RequestID: id})

	out := s.handleMessage(raw)
	frame, err := wire.DecodeFrame(out)
	require.NoError(t, err)
	assert.Equal(t, wire.MsgType(99), frame.Type)

	resp, err := wire.DecodeStatusResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusInternal, resp.Status)
}

func TestTruncatedPayloadAnswersInternal(t *testing.T) {
	s := newTestServer(t)

	// A compute frame whose payload is too short to parse.
	raw := wire.AppendFrame(nil, wire.Frame{
		Type:      wire.MsgCompute,
		RequestID: newID(),
		Payload:   []byte{1, 2, 3},
	})

	out := s.handleMessage(raw)
	frame, err := wire.DecodeFrame(out)
	require.NoError(t, err)
	resp, err := wire.DecodeComputeResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusInternal, resp.Status)
}

func TestServeOverSocket(t *testing.T) {
	cfg := testConfig()
	cfg.ListenAddr = "inproc://server-socket-test"
	cfg.Workers = 2
	cfg.RecvTimeout = 100 * time.Millisecond

	s := New(cfg, nil, metrics.NewRegistry())

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run() }()

	sock, err := transport.NewMangosFactory().NewReqSocket()
	require.NoError(t, err)
	defer sock.Close()

	require.NoError(t, sock.SetSendDeadline(2*time.Second))
	require.NoError(t, sock.SetRecvDeadline(2*time.Second))

	// Dialing inproc can race the listener; retry briefly.
	require.Eventually(t, func() bool {
		return sock.Dial(cfg.ListenAddr) == nil
	}, 2*time.Second, 20*time.Millisecond, "dial should succeed once the daemon is listening")

	id := newID()
	require.NoError(t, sock.Send(wire.EncodeMessage(wire.MsgPing, id, nil)))

	reply, err := sock.Recv()
	require.NoError(t, err)
	frame, err := wire.DecodeFrame(reply)
	require.NoError(t, err)
	assert.Equal(t, id, frame.RequestID)

	resp, err := wire.DecodeStatusResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusOK, resp.Status)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(shutdownCtx))
	require.NoError(t, <-runErr)
}

func TestShutdownIdempotent(t *testing.T) {
	cfg := testConfig()
	cfg.ListenAddr = "inproc://server-shutdown-test"

	s := New(cfg, nil, metrics.NewRegistry())

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, s.Shutdown(ctx), "second shutdown is a no-op")
	require.NoError(t, <-runErr)
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }},
		{"unknown transport", func(c *Config) { c.Transport = "smoke-signals" }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"too many workers", func(c *Config) { c.Workers = 1000 }},
		{"negative sessions", func(c *Config) { c.MaxSessions = -1 }},
		{"sub-second ttl", func(c *Config) { c.SessionTTL = 10 * time.Millisecond }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layoutd.yaml")
	body := `
listen_addr: "tcp://127.0.0.1:7000"
workers: 8
session_ttl: 5m
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://127.0.0.1:7000", cfg.ListenAddr)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Unset fields pick up defaults.
	assert.Equal(t, "mangos", cfg.Transport)
	assert.Equal(t, DefaultConfig().MaxSessions, cfg.MaxSessions)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layoutd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: telepathy\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layoutd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [not a number\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestHealthChecksRegistered(t *testing.T) {
	s := newTestServer(t)

	resp := s.checker.Check()
	for _, name := range []string{"engine", "session_capacity", "memory"} {
		_, ok := resp.Checks[name]
		assert.True(t, ok, fmt.Sprintf("check %s should be registered", name))
	}
	assert.NotEqual(t, "", string(resp.Status))

	live := s.checker.CheckLiveness()
	_, ok := live.Checks["daemon"]
	assert.True(t, ok, "liveness check should be registered")
}
