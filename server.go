// Package server implements the authoritative match engine: session
// registry, host election, turn rotation, action resolution, and the
// per-viewer view builder. Transports are injected; the engine never opens
// sockets itself.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"armada/server/internal/metrics"
	"armada/server/internal/proto"
	"armada/server/internal/telemetry"
	"armada/server/logging"
	lifecyclelog "armada/server/logging/lifecycle"
	networklog "armada/server/logging/network"
)

var (
	ErrNotInitialized = errors.New("server: not initialized")
	ErrAlreadyRunning = errors.New("server: already running")
	ErrNotRunning     = errors.New("server: not running")
)

// acceptRetryDelay throttles the accept loop after a transient error.
const acceptRetryDelay = 100 * time.Millisecond

// Options configures a Server. Zero fields fall back to defaults.
type Options struct {
	Port      int
	Listen    ListenFunc
	Logger    telemetry.Logger
	Publisher logging.Publisher
	Notifier  Notifier
	Observer  EventSink
	Clock     func() time.Time
}

// Server owns the single MatchState and all live sessions. Exactly one
// mutex guards the match state; every broadcast copies out what it needs
// under the lock and performs sends after releasing it.
type Server struct {
	logger   telemetry.Logger
	pub      logging.Publisher
	notifier Notifier
	observer EventSink
	clock    func() time.Time

	port   int
	listen ListenFunc

	running  atomic.Bool
	listener Listener
	wg       sync.WaitGroup

	mu           sync.Mutex
	initialized  bool
	maxPlayers   int
	players      [proto.MaxPlayers]proto.PlayerInfo
	playerCount  int
	hostID       int32
	matchStarted bool
	gameOver     bool
	winnerID     int32
	turn         turnState
	sessions     map[string]*session

	handlers map[proto.EventType]func(*session, proto.Event)
}

// New creates an engine with the given options. Call Init before Start.
func New(opts Options) *Server {
	s := &Server{
		logger:   opts.Logger,
		pub:      opts.Publisher,
		notifier: opts.Notifier,
		observer: opts.Observer,
		clock:    opts.Clock,
		port:     opts.Port,
		listen:   opts.Listen,
		sessions: make(map[string]*session),
	}
	if s.logger == nil {
		s.logger = telemetry.WrapLogger(log.Default())
	}
	if s.pub == nil {
		s.pub = logging.NopPublisher()
	}
	if s.notifier == nil {
		s.notifier = NopNotifier{}
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.port == 0 {
		s.port = DefaultPort
	}
	s.handlers = s.newHandlerTable()
	s.mu.Lock()
	s.resetMatchLocked()
	s.mu.Unlock()
	return s
}

// Init resets the match to a pristine lobby with the given slot capacity
// (clamped to [MinPlayers, proto.MaxPlayers]). Calling Init on a running
// server kicks every connected session.
func (s *Server) Init(maxPlayers int) error {
	if maxPlayers < MinPlayers {
		maxPlayers = MinPlayers
	}
	if maxPlayers > proto.MaxPlayers {
		maxPlayers = proto.MaxPlayers
	}

	s.mu.Lock()
	dropped := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		dropped = append(dropped, sess)
	}
	s.sessions = make(map[string]*session)
	s.maxPlayers = maxPlayers
	s.initialized = true
	s.resetMatchLocked()
	s.mu.Unlock()

	for _, sess := range dropped {
		sess.transport.Close()
	}
	metrics.PlayersActive.Set(0)
	s.logger.Printf("server initialized for up to %d players", maxPlayers)
	return nil
}

// Start opens the gameplay listener and begins accepting connections.
func (s *Server) Start() error {
	s.mu.Lock()
	initialized := s.initialized
	s.mu.Unlock()
	if !initialized {
		return ErrNotInitialized
	}
	if s.listen == nil {
		return errors.New("server: no listen function configured")
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	listener, err := s.listen(s.port)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("server: listen on port %d: %w", s.port, err)
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop(listener)

	s.logger.Printf("server listening on %s", listener.Addr())
	s.notifier.ServerStarted(listener.Addr())
	return nil
}

// Stop closes the listener and every session, then joins all goroutines.
// Safe to call once after Start; returns ErrNotRunning otherwise.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}
	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	open := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	for _, sess := range open {
		sess.transport.Close()
	}

	s.wg.Wait()
	s.logger.Printf("server stopped")
	s.notifier.ServerStopped()
	return nil
}

// Running reports whether Start has been called and Stop has not.
func (s *Server) Running() bool {
	return s.running.Load()
}

func (s *Server) acceptLoop(listener Listener) {
	defer s.wg.Done()
	for {
		transport, err := listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			s.logger.Printf("accept failed: %v", err)
			time.Sleep(acceptRetryDelay)
			continue
		}
		if !s.running.Load() {
			transport.Close()
			return
		}
		s.admit(transport)
	}
}

// admit registers a fresh connection under a pending-connection token and
// spawns its session handler.
func (s *Server) admit(transport Transport) {
	sess := &session{
		token:     uuid.NewString(),
		transport: transport,
		remote:    transport.RemoteAddr(),
		playerID:  proto.NoPlayer,
	}

	s.mu.Lock()
	s.sessions[sess.token] = sess
	s.mu.Unlock()

	metrics.ConnectionsActive.Inc()
	networklog.ConnectionAccepted(context.Background(), s.pub, networklog.ConnectionPayload{
		Remote: sess.remote,
		Token:  sess.token,
	})
	s.notifier.ClientConnected(sess.remote)

	s.wg.Add(1)
	go s.sessionLoop(sess)
}

// sessionLoop processes one connection's events strictly in arrival order.
// Any receive error, including a partial frame, ends the session.
func (s *Server) sessionLoop(sess *session) {
	defer s.wg.Done()
	for s.running.Load() {
		ev, err := sess.transport.ReceiveEvent()
		if err != nil {
			break
		}
		s.dispatch(sess, ev)
	}
	s.dropSession(sess)
}

// dropSession releases the session's slot if it held one, re-elects the
// host, and force-advances or stops the match as needed.
func (s *Server) dropSession(sess *session) {
	s.mu.Lock()
	if _, ok := s.sessions[sess.token]; !ok {
		s.mu.Unlock()
		sess.transport.Close()
		return
	}
	delete(s.sessions, sess.token)

	slot := sess.playerID
	var (
		out        []outbound
		observed   []proto.Event
		name       string
		wasPlayer  bool
		matchEnded bool
		winner     int32
		hostNotice notice
	)
	if slot != proto.NoPlayer && s.players[slot].Active {
		wasPlayer = true
		name = s.players[slot].Name
		s.players[slot].Active = false
		s.players[slot].Connected = false
		s.refreshPlayerCountLocked()

		left := s.serverEvent(proto.EventPlayerLeft)
		left.Lifecycle = &proto.PlayerLifecycle{PlayerID: slot, Name: name}
		out = append(out, s.broadcastLocked(left)...)
		observed = append(observed, left)

		var hostOut []outbound
		hostOut, hostNotice = s.electHostLocked()
		out = append(out, hostOut...)
		if hostNotice.changed {
			observed = append(observed, hostNotice.ev)
		}

		if s.matchStarted && !s.gameOver {
			if s.playerCount < MinPlayers {
				stopOut, stopEv := s.stopMatchLocked("Not enough players")
				out = append(out, stopOut...)
				observed = append(observed, stopEv)
			} else if s.turn.current == slot {
				turnOut, turnObserved := s.advanceTurnLocked(proto.UserAction{})
				out = append(out, turnOut...)
				observed = append(observed, turnObserved...)
				// The forced advance credits income, which can push the
				// incoming player past the star goal.
				if s.gameOver {
					matchEnded = true
					winner = s.winnerID
				}
			}
		}
	}
	playerCount := s.playerCount
	s.mu.Unlock()

	sess.transport.Close()
	metrics.ConnectionsActive.Dec()
	networklog.ConnectionClosed(context.Background(), s.pub, networklog.ConnectionPayload{
		Remote: sess.remote,
		Token:  sess.token,
	})

	if wasPlayer {
		metrics.PlayersActive.Set(float64(playerCount))
		lifecyclelog.PlayerLeft(context.Background(), s.pub, playerRef(slot), lifecyclelog.PlayerLeftPayload{
			Slot:   slot,
			Name:   name,
			Reason: "disconnect",
		})
		if hostNotice.changed {
			lifecyclelog.HostChanged(context.Background(), s.pub, lifecyclelog.HostChangedPayload{
				PreviousHost: hostNotice.previous,
				NewHost:      hostNotice.current,
			})
		}
	}

	s.sendAll(out)
	s.observe(observed...)
	if wasPlayer {
		s.notifier.PlayerLeft(slot, name)
	}
	if matchEnded {
		s.notifier.MatchEnded(winner, winReason(winner))
	}
}

// serverEvent stamps a fresh server-originated event envelope.
func (s *Server) serverEvent(t proto.EventType) proto.Event {
	return proto.Event{
		Type:      t,
		SenderID:  proto.ServerSender,
		Timestamp: s.clock().Unix(),
	}
}

// broadcastLocked pairs ev with every seated, connected session. Callers
// must hold the state lock; sends happen later via sendAll.
func (s *Server) broadcastLocked(ev proto.Event) []outbound {
	out := make([]outbound, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.playerID == proto.NoPlayer {
			continue
		}
		out = append(out, outbound{sess: sess, ev: ev})
	}
	return out
}

// sendAll performs queued sends. Must be called without the state lock.
func (s *Server) sendAll(out []outbound) {
	for _, o := range out {
		s.send(o.sess, o.ev)
	}
}

// send writes one event; on failure the transport is closed and the
// session's reader performs the cleanup.
func (s *Server) send(sess *session, ev proto.Event) {
	if err := sess.transport.SendEvent(ev); err != nil {
		metrics.SendFailures.Inc()
		networklog.SendFailed(context.Background(), s.pub, networklog.SendFailedPayload{
			Remote: sess.remote,
			Event:  ev.Type.String(),
			Error:  err.Error(),
		})
		sess.transport.Close()
		return
	}
	metrics.FramesSent.Inc()
}

// observe forwards already-fogged events to the observer sink, if any.
func (s *Server) observe(events ...proto.Event) {
	if s.observer == nil {
		return
	}
	for _, ev := range events {
		s.observer.Publish(ev)
	}
}

func playerRef(id int32) logging.EntityRef {
	return logging.PlayerRef(fmt.Sprintf("player-%d", id))
}
