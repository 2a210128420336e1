package server

import (
	"context"

	"armada/server/internal/metrics"
	"armada/server/internal/proto"
	matchlog "armada/server/logging/match"
)

// nextActivePlayerLocked scans slots circularly starting after startAfter
// and returns the first active one, or NoPlayer if none remain. It only
// returns startAfter itself when it is the sole active slot.
func (s *Server) nextActivePlayerLocked(startAfter int32) int32 {
	for i := 1; i <= proto.MaxPlayers; i++ {
		idx := (startAfter + int32(i)) % proto.MaxPlayers
		if idx < 0 {
			idx += proto.MaxPlayers
		}
		if s.players[idx].Active {
			return idx
		}
	}
	return proto.NoPlayer
}

// computeValidActionsLocked builds the action bitmask for one viewer this
// turn. Zero unless the viewer holds the turn.
func (s *Server) computeValidActionsLocked(viewer int32) uint32 {
	if viewer == proto.NoPlayer || viewer != s.turn.current {
		return 0
	}
	p := &s.players[viewer]
	if !p.Active {
		return 0
	}

	mask := proto.ValidEndTurn
	for i := range s.players {
		if int32(i) == viewer {
			continue
		}
		if s.players[i].Active && s.players[i].Planet.CurrentHealth > 0 {
			mask |= proto.ValidAttackPlanet
			break
		}
	}
	if p.Planet.CurrentHealth < p.Planet.MaxHealth {
		mask |= proto.ValidRepairPlanet
	}
	if p.Stars > 0 {
		mask |= proto.ValidUpgradePlanet | proto.ValidUpgradeShip
	}
	return mask
}

// startMatchLocked flips the lobby into a running match. Callers have
// already verified authority and the player minimum. Every player receives
// a match-start snapshot followed by the first turn announcement.
func (s *Server) startMatchLocked() ([]outbound, []proto.Event) {
	s.matchStarted = true
	s.gameOver = false
	s.winnerID = proto.NoPlayer
	s.turn.number = 1
	if s.hostID != proto.NoPlayer && s.players[s.hostID].Active {
		s.turn.current = s.hostID
	} else {
		s.turn.current = s.nextActivePlayerLocked(proto.NoPlayer)
	}

	var out []outbound
	var observed []proto.Event

	for _, sess := range s.sessions {
		if sess.playerID == proto.NoPlayer {
			continue
		}
		ev := s.serverEvent(proto.EventMatchStart)
		ev.MatchStart = &proto.MatchStart{View: s.snapshotForLocked(sess.playerID)}
		out = append(out, outbound{sess: sess, ev: ev})
	}
	observerStart := s.serverEvent(proto.EventMatchStart)
	observerStart.MatchStart = &proto.MatchStart{View: s.snapshotForLocked(proto.NoPlayer)}
	observed = append(observed, observerStart)

	turnOut, observerTurn := s.broadcastTurnLocked(true, proto.UserAction{})
	out = append(out, turnOut...)
	observed = append(observed, observerTurn)

	metrics.MatchesStarted.Inc()
	matchlog.Started(context.Background(), s.pub, s.turn.number, matchlog.MatchStartedPayload{
		PlayerCount: s.playerCount,
		FirstPlayer: s.turn.current,
	})
	return out, observed
}

// advanceTurnLocked moves the turn to the next active player, crediting the
// incoming player's income before the switch. Silently no-ops when the
// match is not running or nobody active remains.
func (s *Server) advanceTurnLocked(lastAction proto.UserAction) ([]outbound, []proto.Event) {
	if !s.matchStarted || s.gameOver {
		return nil, nil
	}
	next := s.nextActivePlayerLocked(s.turn.current)
	if next == proto.NoPlayer {
		return nil, nil
	}

	income := s.creditIncomeLocked(next)

	var out []outbound
	var observed []proto.Event
	thresholdOut, thresholdEv := s.checkThresholdLocked(next)
	out = append(out, thresholdOut...)
	if thresholdEv != nil {
		observed = append(observed, *thresholdEv)
	}

	// Income is the only way stars grow, so the star goal is checked here
	// as well as after every action.
	winOut, winObserved := s.checkWinLocked(next)
	if s.gameOver {
		return append(out, winOut...), append(observed, winObserved...)
	}

	s.turn.number++
	s.turn.current = next

	turnOut, observerTurn := s.broadcastTurnLocked(false, lastAction)
	out = append(out, turnOut...)
	observed = append(observed, observerTurn)

	metrics.TurnsAdvanced.Inc()
	matchlog.TurnStarted(context.Background(), s.pub, s.turn.number, playerRef(next), matchlog.TurnStartedPayload{
		CurrentPlayer: next,
		NextPlayer:    s.nextActivePlayerLocked(next),
		Income:        income,
	})
	return out, observed
}

// creditIncomeLocked grants the incoming player stars proportional to
// planet condition: floor(baseIncome × currentHealth/maxHealth).
func (s *Server) creditIncomeLocked(slot int32) int32 {
	p := &s.players[slot]
	if p.Planet.MaxHealth <= 0 {
		return 0
	}
	health := p.Planet.CurrentHealth
	if health < 0 {
		health = 0
	}
	if health > p.Planet.MaxHealth {
		health = p.Planet.MaxHealth
	}
	income := p.Planet.BaseIncome * health / p.Planet.MaxHealth
	p.Stars += income
	return income
}

// broadcastTurnLocked builds each seated viewer's turn announcement plus
// the public observer rendering.
func (s *Server) broadcastTurnLocked(isMatchStart bool, lastAction proto.UserAction) ([]outbound, proto.Event) {
	next := s.nextActivePlayerLocked(s.turn.current)

	build := func(viewer int32) proto.Event {
		ev := s.serverEvent(proto.EventTurnStarted)
		ev.Turn = &proto.TurnInfo{
			CurrentPlayerID: s.turn.current,
			NextPlayerID:    next,
			TurnNumber:      s.turn.number,
			MsPerTurn:       s.turn.msPerTurn,
			IsMatchStart:    isMatchStart,
			ValidActions:    s.computeValidActionsLocked(viewer),
			LastAction:      lastAction,
			View:            s.snapshotForLocked(viewer),
		}
		return ev
	}

	out := make([]outbound, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.playerID == proto.NoPlayer {
			continue
		}
		out = append(out, outbound{sess: sess, ev: build(sess.playerID)})
	}
	return out, build(proto.NoPlayer)
}

// checkThresholdLocked fires the one-shot star warning when a player's
// stars reach the visibility threshold. The latch keeps it from repeating.
func (s *Server) checkThresholdLocked(slot int32) ([]outbound, *proto.Event) {
	p := &s.players[slot]
	if p.CrossedThreshold || p.Stars < starWarningThreshold {
		return nil, nil
	}
	p.CrossedThreshold = true

	ev := s.serverEvent(proto.EventStarThresholdReached)
	ev.Threshold = &proto.Threshold{
		PlayerID:     slot,
		Threshold:    starWarningThreshold,
		CurrentTotal: p.Stars,
	}
	matchlog.ThresholdCrossed(context.Background(), s.pub, s.turn.number, playerRef(slot), matchlog.ThresholdPayload{
		Stars:     p.Stars,
		Threshold: starWarningThreshold,
	})
	return s.broadcastLocked(ev), &ev
}

// stopMatchLocked ends a running match without a winner and returns the
// lobby to its pre-start shape, keeping seated players.
func (s *Server) stopMatchLocked(reason string) ([]outbound, proto.Event) {
	s.matchStarted = false
	s.turn.number = 0
	s.turn.current = proto.NoPlayer

	ev := s.serverEvent(proto.EventMatchStop)
	ev.MatchStop = &proto.MatchStop{ReasonCode: 1, Reason: reason}

	metrics.MatchesCompleted.Inc()
	matchlog.Stopped(context.Background(), s.pub, 0, matchlog.MatchStoppedPayload{Reason: reason})
	return s.broadcastLocked(ev), ev
}
