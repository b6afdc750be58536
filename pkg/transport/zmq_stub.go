//go:build !zmq
// +build !zmq

package transport

import "errors"

// NewZMQFactory reports that this binary was built without ZeroMQ support.
// Build with -tags zmq (libzmq required) to enable it.
func NewZMQFactory() (Factory, error) {
	return nil, errors.New("zmq transport not compiled in (build with -tags zmq)")
}
