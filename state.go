package server

import (
	"armada/server/internal/proto"
)

// turnState tracks the running turn loop. Mutated only under the state lock.
type turnState struct {
	number    int32
	current   int32
	msPerTurn int32
}

// session is one accepted connection. Until a join succeeds the session is
// identified solely by its token; playerID stays NoPlayer. The token keeps
// the pending-connection identity space separate from slot ids.
type session struct {
	token     string
	transport Transport
	remote    string

	// playerID is written under the state lock.
	playerID int32
}

// outbound pairs an event with the session it must be sent to. Broadcast
// paths build these under the lock and perform the sends after releasing it.
type outbound struct {
	sess *session
	ev   proto.Event
}

// resetMatchLocked returns the match to a pristine lobby.
func (s *Server) resetMatchLocked() {
	for i := range s.players {
		s.players[i] = proto.PlayerInfo{PlayerID: int32(i)}
	}
	s.playerCount = 0
	s.hostID = proto.NoPlayer
	s.matchStarted = false
	s.gameOver = false
	s.winnerID = proto.NoPlayer
	s.turn = turnState{
		number:    0,
		current:   proto.NoPlayer,
		msPerTurn: int32(turnBudget.Milliseconds()),
	}
}
