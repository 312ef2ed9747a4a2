package transport

import (
	"errors"
	"net"
	"time"

	"github.com/life-stream-dev/mqttbroker/internal/logger"
)

// TCP listens for plain MQTT connections on a TCP address.
type TCP struct {
	id     string
	listen *net.TCPListener
}

// NewTCP binds a TCP listener on address.
func NewTCP(id, address string) (*TCP, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, err
	}
	logger.Info("tcp listener bound", "id", id, "address", l.Addr().String())
	return &TCP{id: id, listen: l}, nil
}

// ID returns the id of the listener.
func (l *TCP) ID() string {
	return l.id
}

// Addr returns the bound address, which differs from the configured one
// when the port was 0.
func (l *TCP) Addr() net.Addr {
	return l.listen.Addr()
}

// Accept waits up to timeout for a pending connection. It returns
// ErrNoConnection when the deadline passes with nothing pending, so the
// broker loop can poll it without blocking.
func (l *TCP) Accept(timeout time.Duration) (net.Conn, error) {
	if err := l.listen.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	conn, err := l.listen.Accept()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, ErrNoConnection
		}
		return nil, err
	}
	return conn, nil
}

// Close shuts the listener down. Connections already handed to the broker
// are unaffected.
func (l *TCP) Close() error {
	return l.listen.Close()
}
