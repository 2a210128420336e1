package server

import (
	"context"
	"fmt"

	"armada/server/internal/metrics"
	"armada/server/internal/proto"
	matchlog "armada/server/logging/match"
)

// resolution carries everything an action handler produced under the lock
// so the sends and callbacks can happen after releasing it.
type resolution struct {
	out      []outbound
	observed []proto.Event
	code     int32
	message  string
}

func (s *Server) handleUserAction(sess *session, ev proto.Event) {
	if ev.Action == nil {
		s.logger.Printf("user action without payload from %s", sess.remote)
		return
	}
	action := *ev.Action

	s.mu.Lock()
	slot := sess.playerID
	if slot == proto.NoPlayer {
		s.mu.Unlock()
		s.logger.Printf("action from unseated connection %s dropped", sess.remote)
		return
	}
	// The session's slot is authoritative; the payload's claimed id is
	// never trusted.
	action.PlayerID = slot

	if !s.matchStarted {
		s.mu.Unlock()
		s.rejectAction(sess, action, proto.ErrCodeMatchNotStarted, "match not started")
		return
	}
	if s.gameOver {
		s.mu.Unlock()
		s.rejectAction(sess, action, proto.ErrCodeMatchOver, "match is over")
		return
	}
	if slot != s.turn.current || !s.players[slot].Active {
		// Out-of-turn actors are ignored outright, not answered.
		turn := s.turn.number
		s.mu.Unlock()
		matchlog.ActionRejected(context.Background(), s.pub, turn, playerRef(slot), matchlog.ActionRejectedPayload{
			Action: action.Action.String(),
			Code:   proto.ErrCodeNotYourTurn,
			Reason: "out of turn, ignored",
		})
		return
	}

	wasOver := s.gameOver
	res := s.resolveActionLocked(slot, action)
	turn := s.turn.number
	nowOver, winner := s.gameOver, s.winnerID
	s.mu.Unlock()

	if res.code != 0 {
		s.rejectAction(sess, action, res.code, res.message)
		return
	}

	matchlog.ActionResolved(context.Background(), s.pub, turn, playerRef(slot), matchlog.ActionPayload{
		Action: action.Action.String(),
		Target: action.TargetPlayerID,
		Value:  action.Value,
	})
	s.sendAll(res.out)
	s.observe(res.observed...)
	if nowOver && !wasOver {
		s.notifier.MatchEnded(winner, winReason(winner))
	}
}

// rejectAction answers a game-rule rejection with a dedicated error event.
func (s *Server) rejectAction(sess *session, action proto.UserAction, code int32, message string) {
	metrics.ActionsRejected.WithLabelValues(errCodeLabel(code)).Inc()
	matchlog.ActionRejected(context.Background(), s.pub, 0, playerRef(action.PlayerID), matchlog.ActionRejectedPayload{
		Action: action.Action.String(),
		Code:   code,
		Reason: message,
	})
	s.sendError(sess, code, message)
}

// resolveActionLocked applies one in-turn action from the current player.
// A nonzero code means the action was rejected with no state change.
func (s *Server) resolveActionLocked(slot int32, action proto.UserAction) resolution {
	p := &s.players[slot]

	switch action.Action {
	case proto.ActionEndTurn:
		out, observed := s.advanceTurnLocked(action)
		return resolution{out: out, observed: observed}

	case proto.ActionUpgradePlanet:
		cost := p.Planet.UpgradeCost
		if p.Stars < cost {
			return resolution{code: proto.ErrCodeInsufficientStars, message: fmt.Sprintf("planet upgrade costs %d stars", cost)}
		}
		p.Stars -= cost
		p.Planet.Level++
		p.Planet.MaxHealth = planetMaxHealthAt(p.Planet.Level)
		p.Planet.CurrentHealth = p.Planet.MaxHealth
		p.Planet.BaseIncome = planetIncomeAt(p.Planet.Level)
		p.Planet.UpgradeCost = planetUpgradeCost(p.Planet.Level)

	case proto.ActionUpgradeShip:
		cost := p.Ship.UpgradeCost
		if p.Stars < cost {
			return resolution{code: proto.ErrCodeInsufficientStars, message: fmt.Sprintf("ship upgrade costs %d stars", cost)}
		}
		p.Stars -= cost
		p.Ship.Level++
		p.Ship.BaseDamage = shipDamageAt(p.Ship.Level)
		p.Ship.CurrentHealth = p.Ship.MaxHealth
		p.Ship.UpgradeCost = shipUpgradeCost(p.Ship.Level)

	case proto.ActionRepairPlanet:
		if p.Planet.CurrentHealth >= p.Planet.MaxHealth {
			return resolution{code: proto.ErrCodeInvalidTarget, message: "planet already at full health"}
		}
		cost := repairCost(p.Planet.Level)
		if p.Stars < cost {
			return resolution{code: proto.ErrCodeInsufficientStars, message: fmt.Sprintf("repair costs %d stars", cost)}
		}
		p.Stars -= cost
		p.Planet.CurrentHealth = p.Planet.MaxHealth

	case proto.ActionAttackPlanet:
		target := action.TargetPlayerID
		if target < 0 || target >= int32(s.maxPlayers) || target == slot {
			return resolution{code: proto.ErrCodeInvalidTarget, message: "invalid attack target"}
		}
		t := &s.players[target]
		if !t.Active || t.Planet.CurrentHealth <= 0 {
			return resolution{code: proto.ErrCodeInvalidTarget, message: "target cannot be attacked"}
		}
		// Damage is server-authoritative: the attacker's ship decides,
		// never the client-sent value.
		t.Planet.CurrentHealth -= p.Ship.BaseDamage
		if t.Planet.CurrentHealth <= 0 {
			t.Planet.CurrentHealth = 0
			t.Stars = 0
		}

	case proto.ActionSetDefense:
		posture := action.Value
		if posture < 0 {
			posture = 0
		}
		if posture > fullDefensePosture {
			posture = fullDefensePosture
		}
		p.DefensePosture = posture
		if posture >= fullDefensePosture {
			p.Stars = 0
			p.CrossedThreshold = false
			p.DefensePosture = 0
			ev := s.serverEvent(proto.EventDefenseFull)
			ev.Defense = &proto.DefenseFull{
				DefenderID:     slot,
				WasFullDefense: true,
				StarsReset:     true,
			}
			out := s.broadcastLocked(ev)
			followOut, followObserved := s.afterActionLocked(slot, action)
			out = append(out, followOut...)
			return resolution{out: out, observed: append([]proto.Event{ev}, followObserved...)}
		}

	default:
		return resolution{code: proto.ErrCodeInvalidTarget, message: "unknown action"}
	}

	out, observed := s.afterActionLocked(slot, action)
	return resolution{out: out, observed: observed}
}

// afterActionLocked runs the shared post-action sequence: the one-shot
// threshold warning, the star-goal win check, and, if the match is still
// running, a fresh announcement of the current turn so every viewer sees
// the action's outcome.
func (s *Server) afterActionLocked(slot int32, action proto.UserAction) ([]outbound, []proto.Event) {
	var observed []proto.Event
	out, thresholdEv := s.checkThresholdLocked(slot)
	if thresholdEv != nil {
		observed = append(observed, *thresholdEv)
	}

	winOut, winObserved := s.checkWinLocked(slot)
	out = append(out, winOut...)
	observed = append(observed, winObserved...)
	if s.gameOver {
		return out, observed
	}

	turnOut, observerTurn := s.broadcastTurnLocked(false, action)
	out = append(out, turnOut...)
	observed = append(observed, observerTurn)
	return out, observed
}

// checkWinLocked ends the match when a player reaches the star goal.
func (s *Server) checkWinLocked(slot int32) ([]outbound, []proto.Event) {
	if s.players[slot].Stars < starGoal {
		return nil, nil
	}
	s.gameOver = true
	s.winnerID = slot

	ev := s.serverEvent(proto.EventGameOver)
	ev.GameOver = &proto.GameOver{WinnerID: slot, Reason: winReason(slot)}

	metrics.MatchesCompleted.Inc()
	matchlog.GameOver(context.Background(), s.pub, s.turn.number, playerRef(slot), matchlog.GameOverPayload{
		Winner: slot,
		Reason: winReason(slot),
	})
	return s.broadcastLocked(ev), []proto.Event{ev}
}

func winReason(winner int32) string {
	return fmt.Sprintf("player %d reached %d stars", winner, starGoal)
}

func errCodeLabel(code int32) string {
	return fmt.Sprintf("%d", code)
}
