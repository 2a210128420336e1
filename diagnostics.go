package server

import "armada/server/internal/proto"

// SlotDiagnostics describes one slot for the diagnostics endpoint.
type SlotDiagnostics struct {
	PlayerID  int32  `json:"playerId"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	Connected bool   `json:"connected"`
	IsHost    bool   `json:"isHost"`
}

// DiagnosticsSnapshot is a point-in-time copy of the server's public
// operational state.
type DiagnosticsSnapshot struct {
	Running      bool              `json:"running"`
	MaxPlayers   int               `json:"maxPlayers"`
	PlayerCount  int               `json:"playerCount"`
	Connections  int               `json:"connections"`
	HostPlayerID int32             `json:"hostPlayerId"`
	MatchStarted bool              `json:"matchStarted"`
	GameOver     bool              `json:"gameOver"`
	WinnerID     int32             `json:"winnerId"`
	TurnNumber   int32             `json:"turnNumber"`
	CurrentTurn  int32             `json:"currentTurn"`
	Slots        []SlotDiagnostics `json:"slots"`
}

// Diagnostics copies out the server's operational state under the lock.
func (s *Server) Diagnostics() DiagnosticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := DiagnosticsSnapshot{
		Running:      s.running.Load(),
		MaxPlayers:   s.maxPlayers,
		PlayerCount:  s.playerCount,
		Connections:  len(s.sessions),
		HostPlayerID: s.hostID,
		MatchStarted: s.matchStarted,
		GameOver:     s.gameOver,
		WinnerID:     s.winnerID,
		TurnNumber:   s.turn.number,
		CurrentTurn:  s.turn.current,
		Slots:        make([]SlotDiagnostics, 0, s.maxPlayers),
	}
	for i := 0; i < s.maxPlayers; i++ {
		p := &s.players[i]
		snap.Slots = append(snap.Slots, SlotDiagnostics{
			PlayerID:  p.PlayerID,
			Name:      p.Name,
			Active:    p.Active,
			Connected: p.Connected,
			IsHost:    p.PlayerID == s.hostID,
		})
	}
	return snap
}

// PlayerCounts reports the current and maximum player counts for the
// discovery responder.
func (s *Server) PlayerCounts() (current, max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerCount, s.maxPlayers
}

// ObserverSnapshot builds the public, fogged view for read-only observers.
func (s *Server) ObserverSnapshot() proto.PlayerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotForLocked(proto.NoPlayer)
}
