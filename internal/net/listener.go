package net

import (
	"fmt"
	"net"
	"time"

	server "armada/server"
)

// defaultWriteTimeout bounds one outbound frame before the connection is
// considered dead. Matches the engine's send budget.
const defaultWriteTimeout = 10 * time.Second

// TCPListener adapts a net.Listener to the engine's Listener interface,
// wrapping each accepted socket in a framed Conn.
type TCPListener struct {
	ln           net.Listener
	writeTimeout time.Duration
}

// Listen opens the gameplay listener on the given TCP port.
func Listen(port int) (server.Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return &TCPListener{ln: ln, writeTimeout: defaultWriteTimeout}, nil
}

func (l *TCPListener) Accept() (server.Transport, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	return NewConn(conn, l.writeTimeout), nil
}

func (l *TCPListener) Close() error {
	return l.ln.Close()
}

func (l *TCPListener) Addr() string {
	return l.ln.Addr().String()
}
