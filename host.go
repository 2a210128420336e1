package server

import "armada/server/internal/proto"

// notice records the outcome of a host election for post-unlock logging.
type notice struct {
	changed  bool
	previous int32
	current  int32
	ev       proto.Event
}

// selectHostLocked keeps the current host while it remains active,
// otherwise picks the lowest active slot, or NoPlayer if the lobby is
// empty. Stability first: an unrelated join or leave never moves the host.
func (s *Server) selectHostLocked() int32 {
	if s.hostID != proto.NoPlayer && s.players[s.hostID].Active {
		return s.hostID
	}
	for i := 0; i < s.maxPlayers; i++ {
		if s.players[i].Active {
			return int32(i)
		}
	}
	return proto.NoPlayer
}

// electHostLocked runs an election and, only when the host actually
// changes, queues a host-update broadcast.
func (s *Server) electHostLocked() ([]outbound, notice) {
	elected := s.selectHostLocked()
	if elected == s.hostID {
		return nil, notice{previous: s.hostID, current: elected}
	}

	previous := s.hostID
	s.hostID = elected

	ev := s.serverEvent(proto.EventHostUpdated)
	update := &proto.HostUpdate{HostPlayerID: elected}
	if elected != proto.NoPlayer {
		update.HostName = s.players[elected].Name
	}
	ev.Host = update
	return s.broadcastLocked(ev), notice{
		changed:  true,
		previous: previous,
		current:  elected,
		ev:       ev,
	}
}
