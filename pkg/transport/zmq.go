//go:build zmq
// +build zmq

package transport

import (
	"errors"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"
)

func mapZMQErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, zmq.ErrorSocketClosed) {
		return ErrClosed
	}
	// RCVTIMEO/SNDTIMEO expiry surfaces as EAGAIN
	if zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
		return ErrTimeout
	}
	return err
}

// zmqSocket wraps a *zmq.Socket to implement our Socket interface. ZeroMQ
// sockets are not safe for concurrent use, so this backend never offers
// context multiplexing; the serving loop stays single-threaded.
type zmqSocket struct {
	sock *zmq.Socket
}

func (s *zmqSocket) Send(data []byte) error {
	_, err := s.sock.SendBytes(data, 0)
	return mapZMQErr(err)
}

func (s *zmqSocket) Recv() ([]byte, error) {
	data, err := s.sock.RecvBytes(0)
	return data, mapZMQErr(err)
}

func (s *zmqSocket) Close() error {
	return s.sock.Close()
}

func (s *zmqSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetRcvtimeo(d)
}

func (s *zmqSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetSndtimeo(d)
}

func (s *zmqSocket) Listen(addr string) error {
	return s.sock.Bind(addr)
}

func (s *zmqSocket) Dial(addr string) error {
	return s.sock.Connect(addr)
}

// ZMQFactory creates ZeroMQ REP/REQ sockets.
type ZMQFactory struct{}

// NewZMQFactory creates a new ZeroMQ socket factory.
func NewZMQFactory() (Factory, error) {
	return &ZMQFactory{}, nil
}

func (f *ZMQFactory) NewRepSocket() (ListenSocket, error) {
	sock, err := zmq.NewSocket(zmq.REP)
	if err != nil {
		return nil, err
	}
	return &zmqSocket{sock: sock}, nil
}

func (f *ZMQFactory) NewReqSocket() (DialSocket, error) {
	sock, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return nil, err
	}
	return &zmqSocket{sock: sock}, nil
}

// Ensure ZMQFactory implements Factory
var _ Factory = (*ZMQFactory)(nil)
