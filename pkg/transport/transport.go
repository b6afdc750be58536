// Package transport abstracts the request/reply messaging layer so the
// daemon and client can run over mangos (default) or ZeroMQ (zmq build tag)
// without touching protocol code.
package transport

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Backend errors are normalized to these two so callers never branch on
// mangos or zmq error values.
var (
	// ErrTimeout reports an expired send or receive deadline.
	ErrTimeout = errors.New("transport: deadline expired")

	// ErrClosed reports an operation on a closed socket.
	ErrClosed = errors.New("transport: socket closed")
)

// Socket sends and receives whole messages.
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
	SetSendDeadline(d time.Duration) error
}

// ListenSocket is a socket that can bind to an address and accept connections.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// DialSocket is a socket that can connect to a remote address.
type DialSocket interface {
	Socket
	Dial(addr string) error
}

// ContextOpener is implemented by reply sockets whose protocol multiplexes
// independent request contexts over one socket, letting several worker
// loops serve concurrently. Callers fall back to a single loop when the
// socket does not support it.
type ContextOpener interface {
	OpenContext() (Socket, error)
}

// Factory creates sockets for the request/reply pattern.
type Factory interface {
	// NewRepSocket creates the server side.
	NewRepSocket() (ListenSocket, error)

	// NewReqSocket creates the client side.
	NewReqSocket() (DialSocket, error)
}

// NewFactory selects a backend by name. An empty name means mangos.
func NewFactory(backend string) (Factory, error) {
	switch backend {
	case "", "mangos":
		return NewMangosFactory(), nil
	case "zmq":
		return NewZMQFactory()
	default:
		return nil, fmt.Errorf("unknown transport backend %q", backend)
	}
}
