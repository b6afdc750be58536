// Package client talks to layoutd over its rep socket. One Client owns one
// req socket; requests are serialized on it, matching the lock-step
// req/rep protocol underneath.
package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-layout/pkg/layout"
	"github.com/dd0wney/cluso-layout/pkg/logging"
	"github.com/dd0wney/cluso-layout/pkg/pools"
	"github.com/dd0wney/cluso-layout/pkg/transport"
	"github.com/dd0wney/cluso-layout/pkg/wire"
)

// Options tunes a connection. The zero value works.
type Options struct {
	// Transport selects the messaging backend: "mangos" (default) or "zmq".
	Transport string

	// SendTimeout bounds request delivery; RecvTimeout bounds the wait for
	// a response, so it must cover the longest compute the client expects.
	SendTimeout time.Duration
	RecvTimeout time.Duration

	// Logger receives per-request debug logs. Nil means silent.
	Logger logging.Logger
}

// DefaultOptions returns the timeouts used when Options fields are zero.
func DefaultOptions() Options {
	return Options{
		SendTimeout: 5 * time.Second,
		RecvTimeout: 60 * time.Second,
	}
}

// Stats is the daemon's counter snapshot.
type Stats struct {
	ActiveSessions int
	Created        uint64
	Destroyed      uint64
	Computes       uint64
	Evicted        uint64
	Uptime         time.Duration
}

// Client is a connection to one layoutd instance. Safe for concurrent use;
// calls serialize on the underlying socket.
type Client struct {
	mu     sync.Mutex
	sock   transport.DialSocket
	logger logging.Logger
	closed bool
}

// Dial connects with default options.
func Dial(addr string) (*Client, error) {
	return DialOptions(addr, DefaultOptions())
}

// DialOptions connects to a daemon.
func DialOptions(addr string, opts Options) (*Client, error) {
	defaults := DefaultOptions()
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaults.SendTimeout
	}
	if opts.RecvTimeout <= 0 {
		opts.RecvTimeout = defaults.RecvTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	factory, err := transport.NewFactory(opts.Transport)
	if err != nil {
		return nil, err
	}
	sock, err := factory.NewReqSocket()
	if err != nil {
		return nil, fmt.Errorf("create req socket: %w", err)
	}
	if err := sock.SetSendDeadline(opts.SendTimeout); err != nil {
		sock.Close()
		return nil, err
	}
	if err := sock.SetRecvDeadline(opts.RecvTimeout); err != nil {
		sock.Close()
		return nil, err
	}
	if err := sock.Dial(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return &Client{
		sock:   sock,
		logger: logger.With(logging.Component("client"), logging.Addr(addr)),
	}, nil
}

// Close releases the socket. Further calls fail.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.sock.Close()
}

// Create uploads a graph and returns its handle plus the number of nodes the
// daemon accepted after de-duplication.
func (c *Client) Create(nodes []layout.Node, edges []layout.Edge, width, height float64) (uint64, int, error) {
	payload, err := c.roundTrip(wire.MsgCreate, &wire.CreateRequest{
		Width:  width,
		Height: height,
		Nodes:  nodes,
		Edges:  edges,
	})
	if err != nil {
		return 0, 0, err
	}

	resp, err := wire.DecodeCreateResponse(payload)
	if err != nil {
		return 0, 0, err
	}
	if resp.Status != wire.StatusOK {
		return 0, 0, layout.NewError("client.create").
			Context("%d nodes, %d edges", len(nodes), len(edges)).
			Cause(resp.Status.Err()).
			Err()
	}
	return resp.Handle, int(resp.AcceptedNodes), nil
}

// Compute runs the simulation on a session and fills out with one position
// per accepted node, returning how many were written. The daemon refuses the
// request before any work when len(out) is too small.
func (c *Client) Compute(handle uint64, opts layout.ComputeOptions, out []layout.Position) (int, error) {
	payload, err := c.roundTrip(wire.MsgCompute, &wire.ComputeRequest{
		Handle:             handle,
		MaxIterations:      int32(opts.MaxIterations),
		InitialTemperature: opts.InitialTemperature,
		Capacity:           uint32(len(out)),
	})
	if err != nil {
		return 0, err
	}

	resp, err := wire.DecodeComputeResponse(payload)
	if err != nil {
		return 0, err
	}
	if resp.Status != wire.StatusOK {
		return 0, layout.NewError("client.compute").
			Handle(handle).
			Cause(resp.Status.Err()).
			Err()
	}
	n := copy(out, resp.Positions)
	return n, nil
}

// Destroy releases a session. Destroying twice fails with ErrInvalidHandle.
func (c *Client) Destroy(handle uint64) error {
	payload, err := c.roundTrip(wire.MsgDestroy, &wire.DestroyRequest{Handle: handle})
	if err != nil {
		return err
	}

	resp, err := wire.DecodeStatusResponse(payload)
	if err != nil {
		return err
	}
	if resp.Status != wire.StatusOK {
		return layout.NewError("client.destroy").
			Handle(handle).
			Cause(resp.Status.Err()).
			Err()
	}
	return nil
}

// Stats fetches the daemon's counters.
func (c *Client) Stats() (Stats, error) {
	payload, err := c.roundTrip(wire.MsgStats, nil)
	if err != nil {
		return Stats{}, err
	}

	resp, err := wire.DecodeStatsResponse(payload)
	if err != nil {
		return Stats{}, err
	}
	if resp.Status != wire.StatusOK {
		return Stats{}, layout.NewError("client.stats").Cause(resp.Status.Err()).Err()
	}
	return Stats{
		ActiveSessions: int(resp.ActiveSessions),
		Created:        resp.Created,
		Destroyed:      resp.Destroyed,
		Computes:       resp.Computes,
		Evicted:        resp.Evicted,
		Uptime:         time.Duration(resp.UptimeSeconds) * time.Second,
	}, nil
}

// Ping checks the daemon answers at all.
func (c *Client) Ping() error {
	payload, err := c.roundTrip(wire.MsgPing, nil)
	if err != nil {
		return err
	}

	resp, err := wire.DecodeStatusResponse(payload)
	if err != nil {
		return err
	}
	if resp.Status != wire.StatusOK {
		return layout.NewError("client.ping").Cause(resp.Status.Err()).Err()
	}
	return nil
}

// roundTrip sends one framed request and returns the response payload after
// verifying the echoed type and request id. A mismatch means the socket has
// desynchronized from the daemon; callers should close and reconnect.
func (c *Client) roundTrip(t wire.MsgType, req wire.Message) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, layout.NewError("client." + t.String()).Cause(layout.ErrSessionClosed).Err()
	}

	id := wire.RequestID(uuid.New())
	start := time.Now()

	buf := wire.EncodeMessage(t, id, req)
	err := c.sock.Send(buf)
	pools.PutBytes(buf)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", t, err)
	}

	raw, err := c.sock.Recv()
	if err != nil {
		return nil, fmt.Errorf("recv %s: %w", t, err)
	}

	frame, err := wire.DecodeFrame(raw)
	if err != nil {
		return nil, err
	}
	if frame.Type != t {
		return nil, fmt.Errorf("%w: %s response to a %s request", wire.ErrInternal, frame.Type, t)
	}
	if frame.RequestID != id {
		return nil, fmt.Errorf("%w: response id %s does not match request id %s",
			wire.ErrInternal, uuid.UUID(frame.RequestID), uuid.UUID(id))
	}

	c.logger.Debug("request answered",
		logging.Operation(t.String()),
		logging.RequestID(uuid.UUID(id).String()),
		logging.Latency(time.Since(start)))

	return frame.Payload, nil
}
