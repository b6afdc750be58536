package transport

import (
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/rep"
	"go.nanomsg.org/mangos/v3/protocol/req"

	// Register all transports (tcp, ipc, inproc, ws)
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

func mapMangosErr(err error) error {
	switch err {
	case nil:
		return nil
	case mangos.ErrRecvTimeout, mangos.ErrSendTimeout:
		return ErrTimeout
	case mangos.ErrClosed:
		return ErrClosed
	}
	return err
}

// mangosSocket wraps a mangos.Socket to implement our Socket interface.
type mangosSocket struct {
	sock mangos.Socket
}

func (s *mangosSocket) Send(data []byte) error {
	return mapMangosErr(s.sock.Send(data))
}

func (s *mangosSocket) Recv() ([]byte, error) {
	data, err := s.sock.Recv()
	return data, mapMangosErr(err)
}

func (s *mangosSocket) Close() error {
	return s.sock.Close()
}

func (s *mangosSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionRecvDeadline, d)
}

func (s *mangosSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionSendDeadline, d)
}

func (s *mangosSocket) Listen(addr string) error {
	return s.sock.Listen(addr)
}

func (s *mangosSocket) Dial(addr string) error {
	return s.sock.Dial(addr)
}

// OpenContext exposes the rep protocol's context multiplexing, so several
// worker loops can serve one bound socket.
func (s *mangosSocket) OpenContext() (Socket, error) {
	ctx, err := s.sock.OpenContext()
	if err != nil {
		return nil, err
	}
	return &mangosContext{ctx: ctx}, nil
}

// mangosContext wraps one protocol context of a shared socket.
type mangosContext struct {
	ctx mangos.Context
}

func (c *mangosContext) Send(data []byte) error {
	return mapMangosErr(c.ctx.Send(data))
}

func (c *mangosContext) Recv() ([]byte, error) {
	data, err := c.ctx.Recv()
	return data, mapMangosErr(err)
}

func (c *mangosContext) Close() error {
	return c.ctx.Close()
}

func (c *mangosContext) SetRecvDeadline(d time.Duration) error {
	return c.ctx.SetOption(mangos.OptionRecvDeadline, d)
}

func (c *mangosContext) SetSendDeadline(d time.Duration) error {
	return c.ctx.SetOption(mangos.OptionSendDeadline, d)
}

// MangosFactory creates mangos rep/req sockets.
type MangosFactory struct{}

// NewMangosFactory creates a new mangos socket factory.
func NewMangosFactory() *MangosFactory {
	return &MangosFactory{}
}

func (f *MangosFactory) NewRepSocket() (ListenSocket, error) {
	sock, err := rep.NewSocket()
	if err != nil {
		return nil, err
	}
	return &mangosSocket{sock: sock}, nil
}

func (f *MangosFactory) NewReqSocket() (DialSocket, error) {
	sock, err := req.NewSocket()
	if err != nil {
		return nil, err
	}
	return &mangosSocket{sock: sock}, nil
}

// Ensure MangosFactory implements Factory
var _ Factory = (*MangosFactory)(nil)
var _ ContextOpener = (*mangosSocket)(nil)
