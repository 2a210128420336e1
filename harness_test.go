package server

import (
	"errors"
	"sync"
	"testing"
	"time"

	"armada/server/internal/proto"
)

// fakeTransport records everything the engine sends and feeds it events
// from a channel, standing in for a framed TCP connection.
type fakeTransport struct {
	remote string
	in     chan proto.Event

	mu        sync.Mutex
	sent      []proto.Event
	failSends bool
	closed    bool
	closeCh   chan struct{}
}

func newFakeTransport(remote string) *fakeTransport {
	return &fakeTransport{
		remote:  remote,
		in:      make(chan proto.Event, 16),
		closeCh: make(chan struct{}),
	}
}

func (f *fakeTransport) SendEvent(ev proto.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.failSends {
		return errors.New("transport closed")
	}
	f.sent = append(f.sent, ev)
	return nil
}

func (f *fakeTransport) ReceiveEvent() (proto.Event, error) {
	select {
	case ev := <-f.in:
		return ev, nil
	case <-f.closeCh:
		return proto.Event{}, errors.New("transport closed")
	}
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.closeCh)
	}
	return nil
}

func (f *fakeTransport) RemoteAddr() string { return f.remote }

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// events returns every sent event of the given type.
func (f *fakeTransport) events(t proto.EventType) []proto.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []proto.Event
	for _, ev := range f.sent {
		if ev.Type == t {
			matched = append(matched, ev)
		}
	}
	return matched
}

// last returns the most recent sent event of the given type, or nil.
func (f *fakeTransport) last(t proto.EventType) *proto.Event {
	events := f.events(t)
	if len(events) == 0 {
		return nil
	}
	return &events[len(events)-1]
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

// recordingNotifier captures lifecycle callbacks.
type recordingNotifier struct {
	NopNotifier
	mu      sync.Mutex
	joins   []int32
	leaves  []int32
	started []int32
	ended   []int32
	unknown []proto.EventType
}

func (n *recordingNotifier) PlayerJoined(id int32, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.joins = append(n.joins, id)
}

func (n *recordingNotifier) PlayerLeft(id int32, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leaves = append(n.leaves, id)
}

func (n *recordingNotifier) MatchStarted(first int32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, first)
}

func (n *recordingNotifier) MatchEnded(winner int32, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ended = append(n.ended, winner)
}

func (n *recordingNotifier) UnknownEvent(t proto.EventType, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unknown = append(n.unknown, t)
}

// recordingSink captures observer fan-out.
type recordingSink struct {
	mu     sync.Mutex
	events []proto.Event
}

func (s *recordingSink) Publish(ev proto.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) byType(t proto.EventType) []proto.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []proto.Event
	for _, ev := range s.events {
		if ev.Type == t {
			matched = append(matched, ev)
		}
	}
	return matched
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New(Options{
		Clock: func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err := s.Init(proto.MaxPlayers); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

// connect registers a fake connection without joining it to a slot.
func connect(s *Server, remote string) (*session, *fakeTransport) {
	ft := newFakeTransport(remote)
	sess := &session{
		token:     remote + "-token",
		transport: ft,
		remote:    remote,
		playerID:  proto.NoPlayer,
	}
	s.mu.Lock()
	s.sessions[sess.token] = sess
	s.mu.Unlock()
	return sess, ft
}

// join seats a player and asserts the ack succeeded.
func join(t *testing.T, s *Server, name string) (*session, *fakeTransport) {
	t.Helper()
	sess, ft := connect(s, name)
	s.dispatch(sess, proto.Event{
		Type: proto.EventJoinRequest,
		Join: &proto.JoinRequest{Name: name},
	})
	ack := ft.last(proto.EventJoinAck)
	if ack == nil || ack.JoinAck == nil {
		t.Fatalf("join %s: no ack", name)
	}
	if !ack.JoinAck.Success {
		t.Fatalf("join %s: rejected: %s", name, ack.JoinAck.Message)
	}
	if ack.JoinAck.PlayerID != sess.playerID {
		t.Fatalf("join %s: ack slot %d, session slot %d", name, ack.JoinAck.PlayerID, sess.playerID)
	}
	return sess, ft
}

func startMatch(t *testing.T, s *Server, host *session) {
	t.Helper()
	s.dispatch(host, proto.Event{Type: proto.EventMatchStartRequest})
	s.mu.Lock()
	started := s.matchStarted
	s.mu.Unlock()
	if !started {
		t.Fatal("match did not start")
	}
}

func sendAction(s *Server, sess *session, action proto.UserAction) {
	s.dispatch(sess, proto.Event{
		Type:     proto.EventUserAction,
		SenderID: sess.playerID,
		Action:   &action,
	})
}

func endTurn(s *Server, sess *session) {
	sendAction(s, sess, proto.UserAction{Action: proto.ActionEndTurn})
}

// player returns a copy of one slot's authoritative state.
func player(s *Server, slot int32) proto.PlayerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players[slot]
}

// setPlayer mutates one slot directly for scenario setup.
func setPlayer(s *Server, slot int32, mutate func(*proto.PlayerInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.players[slot])
}

func currentTurn(s *Server) (number, current int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn.number, s.turn.current
}
