// Package net implements the transport side of the match server: framed
// TCP connections, the gameplay listener, and the UDP discovery responder.
// The engine only ever sees decoded events.
package net

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"armada/server/internal/proto"
)

var (
	// ErrNoData is returned by Poll when no full frame is waiting.
	ErrNoData = errors.New("net: no data")
	// ErrDisconnected is returned once the peer has gone away.
	ErrDisconnected = errors.New("net: disconnected")
)

// pollWindow bounds one non-blocking receive attempt.
const pollWindow = 10 * time.Millisecond

// Conn frames events over one TCP connection. A frame is all-or-nothing:
// a short read or write is fatal for the connection.
type Conn struct {
	conn net.Conn

	// writeMu serializes concurrent senders; reads have a single owner.
	writeMu      sync.Mutex
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an established TCP connection.
func NewConn(conn net.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{conn: conn, writeTimeout: writeTimeout}
}

// SendEvent encodes and writes one frame.
func (c *Conn) SendEvent(ev proto.Event) error {
	frame, err := proto.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReceiveEvent blocks until one full frame arrives. Any error, including a
// partial frame, means the connection is unusable.
func (c *Conn) ReceiveEvent() (proto.Event, error) {
	buf := make([]byte, proto.FrameSize)
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return proto.Event{}, ErrDisconnected
		}
		return proto.Event{}, fmt.Errorf("read frame: %w", err)
	}
	return proto.DecodeEvent(buf)
}

// Poll attempts a non-blocking receive: it waits at most pollWindow for a
// frame to begin arriving and returns ErrNoData when none does. Once the
// first byte is in, the rest of the frame is read without a deadline so a
// slow sender cannot fabricate a partial-frame error.
func (c *Conn) Poll() (proto.Event, error) {
	c.conn.SetReadDeadline(time.Now().Add(pollWindow))
	one := make([]byte, 1)
	_, err := c.conn.Read(one)
	c.conn.SetReadDeadline(time.Time{})
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return proto.Event{}, ErrNoData
		}
		if errors.Is(err, io.EOF) {
			return proto.Event{}, ErrDisconnected
		}
		return proto.Event{}, fmt.Errorf("poll: %w", err)
	}

	buf := make([]byte, proto.FrameSize)
	buf[0] = one[0]
	if _, err := io.ReadFull(c.conn, buf[1:]); err != nil {
		return proto.Event{}, fmt.Errorf("read frame: %w", err)
	}
	return proto.DecodeEvent(buf)
}

// Close shuts the underlying connection. Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// RemoteAddr names the peer for logs.
func (c *Conn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
