package server

import "armada/server/internal/proto"

// Transport is one player's framed event connection. Implementations live
// in internal/net; the engine never touches raw bytes.
type Transport interface {
	// SendEvent writes one frame. Any error means the connection is dead.
	SendEvent(ev proto.Event) error
	// ReceiveEvent blocks until a full frame arrives. Any error, including
	// a partial frame, means the connection is dead.
	ReceiveEvent() (proto.Event, error)
	Close() error
	RemoteAddr() string
}

// Listener accepts player transports.
type Listener interface {
	Accept() (Transport, error)
	Close() error
	Addr() string
}

// ListenFunc opens the gameplay listener on the given TCP port. Injected at
// construction so tests can supply in-memory listeners.
type ListenFunc func(port int) (Listener, error)

// Notifier receives lifecycle callbacks from the engine. Calls are made
// outside the state lock and must not block for long.
type Notifier interface {
	ServerStarted(addr string)
	ServerStopped()
	ClientConnected(remote string)
	PlayerJoined(playerID int32, name string)
	PlayerLeft(playerID int32, name string)
	MatchStarted(firstPlayer int32)
	MatchEnded(winnerID int32, reason string)
	UnknownEvent(eventType proto.EventType, remote string)
}

// NopNotifier discards all callbacks. Embed it to implement a subset.
type NopNotifier struct{}

func (NopNotifier) ServerStarted(string)                 {}
func (NopNotifier) ServerStopped()                       {}
func (NopNotifier) ClientConnected(string)               {}
func (NopNotifier) PlayerJoined(int32, string)           {}
func (NopNotifier) PlayerLeft(int32, string)             {}
func (NopNotifier) MatchStarted(int32)                   {}
func (NopNotifier) MatchEnded(int32, string)             {}
func (NopNotifier) UnknownEvent(proto.EventType, string) {}

// EventSink receives a copy of every event the engine broadcasts, already
// reduced to public information. The WebSocket observer gateway implements
// it; a nil sink disables observer fan-out.
type EventSink interface {
	Publish(ev proto.Event)
}
