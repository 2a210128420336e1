package server

import (
	"context"

	"armada/server/internal/metrics"
	"armada/server/internal/proto"
	lifecyclelog "armada/server/logging/lifecycle"
	matchlog "armada/server/logging/match"
	networklog "armada/server/logging/network"
)

// newHandlerTable maps inbound event types to their handlers. Anything not
// in the table, including server-originated types echoed back by a broken
// client, is reported and dropped.
func (s *Server) newHandlerTable() map[proto.EventType]func(*session, proto.Event) {
	return map[proto.EventType]func(*session, proto.Event){
		proto.EventJoinRequest:       s.handleJoinRequest,
		proto.EventMatchStartRequest: s.handleMatchStartRequest,
		proto.EventUserAction:        s.handleUserAction,
	}
}

func (s *Server) dispatch(sess *session, ev proto.Event) {
	metrics.EventsDispatched.WithLabelValues(ev.Type.String()).Inc()
	handler, ok := s.handlers[ev.Type]
	if !ok {
		s.logger.Printf("dropping unhandled event type %d from %s", uint32(ev.Type), sess.remote)
		networklog.UnknownEvent(context.Background(), s.pub, networklog.UnknownEventPayload{
			Type: uint32(ev.Type),
		})
		s.notifier.UnknownEvent(ev.Type, sess.remote)
		return
	}
	handler(sess, ev)
}

// sendError surfaces a game-rule rejection to the requesting player only.
// No state mutation accompanies it.
func (s *Server) sendError(sess *session, code int32, message string) {
	ev := s.serverEvent(proto.EventError)
	ev.Error = &proto.ErrorInfo{Code: code, Message: message}
	s.send(sess, ev)
}

func (s *Server) handleJoinRequest(sess *session, ev proto.Event) {
	name := "Commander"
	if ev.Join != nil && ev.Join.Name != "" {
		name = ev.Join.Name
	}

	s.mu.Lock()
	if sess.playerID != proto.NoPlayer {
		ack := s.serverEvent(proto.EventJoinAck)
		ack.JoinAck = &proto.JoinAck{
			PlayerID:     sess.playerID,
			Success:      true,
			HostPlayerID: s.hostID,
			IsHost:       sess.playerID == s.hostID,
			Message:      "already joined",
		}
		s.mu.Unlock()
		s.send(sess, ack)
		return
	}
	if s.matchStarted && !s.gameOver {
		s.mu.Unlock()
		s.rejectJoin(sess, "match already started")
		return
	}
	slot := s.findOpenSlotLocked()
	if slot == proto.NoPlayer {
		s.mu.Unlock()
		s.rejectJoin(sess, "server full")
		return
	}

	s.resetSlotLocked(slot, name)
	sess.playerID = slot
	hostOut, hostNotice := s.electHostLocked()

	ack := s.serverEvent(proto.EventJoinAck)
	ack.JoinAck = &proto.JoinAck{
		PlayerID:     slot,
		Success:      true,
		HostPlayerID: s.hostID,
		IsHost:       slot == s.hostID,
		Message:      "welcome",
	}

	joined := s.serverEvent(proto.EventPlayerJoined)
	joined.Lifecycle = &proto.PlayerLifecycle{PlayerID: slot, Name: name}
	out := make([]outbound, 0, len(s.sessions))
	for _, other := range s.sessions {
		if other == sess || other.playerID == proto.NoPlayer {
			continue
		}
		out = append(out, outbound{sess: other, ev: joined})
	}
	out = append(out, hostOut...)
	playerCount := s.playerCount
	s.mu.Unlock()

	s.send(sess, ack)
	s.sendAll(out)
	s.observe(joined)
	if hostNotice.changed {
		s.observe(hostNotice.ev)
	}

	metrics.PlayersActive.Set(float64(playerCount))
	lifecyclelog.PlayerJoined(context.Background(), s.pub, playerRef(slot), lifecyclelog.PlayerJoinedPayload{
		Slot: slot,
		Name: name,
	})
	if hostNotice.changed {
		lifecyclelog.HostChanged(context.Background(), s.pub, lifecyclelog.HostChangedPayload{
			PreviousHost: hostNotice.previous,
			NewHost:      hostNotice.current,
		})
	}
	s.notifier.PlayerJoined(slot, name)
}

// rejectJoin answers a join request that cannot be seated and closes the
// connection. The session loop performs the registry cleanup.
func (s *Server) rejectJoin(sess *session, reason string) {
	ack := s.serverEvent(proto.EventJoinAck)
	ack.JoinAck = &proto.JoinAck{
		PlayerID:     proto.NoPlayer,
		Success:      false,
		HostPlayerID: proto.NoPlayer,
		Message:      reason,
	}
	s.send(sess, ack)
	sess.transport.Close()
}

func (s *Server) handleMatchStartRequest(sess *session, _ proto.Event) {
	s.mu.Lock()
	code, message := int32(0), ""
	switch {
	case s.gameOver:
		code, message = proto.ErrCodeMatchOver, "match is over"
	case s.matchStarted:
		code, message = proto.ErrCodeMatchStarted, "match already started"
	case sess.playerID == proto.NoPlayer || sess.playerID != s.hostID:
		code, message = proto.ErrCodeNotHost, "only the host may start the match"
	case s.playerCount < MinPlayers:
		code, message = proto.ErrCodeNotEnoughPlayers, "not enough players"
	}
	if code != 0 {
		s.mu.Unlock()
		metrics.ActionsRejected.WithLabelValues(errCodeLabel(code)).Inc()
		matchlog.ActionRejected(context.Background(), s.pub, 0, playerRef(sess.playerID), matchlog.ActionRejectedPayload{
			Action: "match_start",
			Code:   code,
			Reason: message,
		})
		s.sendError(sess, code, message)
		return
	}

	out, observed := s.startMatchLocked()
	first := s.turn.current
	s.mu.Unlock()

	s.sendAll(out)
	s.observe(observed...)
	s.notifier.MatchStarted(first)
}
