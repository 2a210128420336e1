package server

import (
	"testing"

	"armada/server/internal/proto"
)

func TestNextActivePlayerSkipsInactiveAndWraps(t *testing.T) {
	s := newTestServer(t)
	join(t, s, "Alpha")   // slot 0
	join(t, s, "Bravo")   // slot 1
	join(t, s, "Charlie") // slot 2

	setPlayer(s, 1, func(p *proto.PlayerInfo) { p.Active = false })

	s.mu.Lock()
	defer s.mu.Unlock()
	if got := s.nextActivePlayerLocked(0); got != 2 {
		t.Fatalf("next after 0 = %d, want 2 (slot 1 inactive)", got)
	}
	if got := s.nextActivePlayerLocked(2); got != 0 {
		t.Fatalf("next after 2 = %d, want wrap to 0", got)
	}
}

func TestNextActivePlayerReturnsSelfOnlyWhenAlone(t *testing.T) {
	s := newTestServer(t)
	join(t, s, "Alpha")
	join(t, s, "Bravo")

	s.mu.Lock()
	if got := s.nextActivePlayerLocked(0); got == 0 {
		t.Fatal("next after 0 returned 0 while slot 1 is active")
	}
	s.mu.Unlock()

	setPlayer(s, 1, func(p *proto.PlayerInfo) { p.Active = false })
	s.mu.Lock()
	defer s.mu.Unlock()
	if got := s.nextActivePlayerLocked(0); got != 0 {
		t.Fatalf("sole active slot: next after 0 = %d, want 0", got)
	}
}

func TestNextActivePlayerNoneRemaining(t *testing.T) {
	s := newTestServer(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	if got := s.nextActivePlayerLocked(proto.NoPlayer); got != proto.NoPlayer {
		t.Fatalf("empty lobby: next = %d, want NoPlayer", got)
	}
}

func TestMatchStartAnnouncesFirstTurn(t *testing.T) {
	s := newTestServer(t)
	a, fa := join(t, s, "Alpha")
	b, fb := join(t, s, "Bravo")
	startMatch(t, s, a)

	number, current := currentTurn(s)
	if number != 1 || current != a.playerID {
		t.Fatalf("turn = %d/%d, want 1 held by host %d", number, current, a.playerID)
	}

	for name, ft := range map[string]*fakeTransport{"Alpha": fa, "Bravo": fb} {
		if ft.last(proto.EventMatchStart) == nil {
			t.Fatalf("%s missed the match-start snapshot", name)
		}
		turn := ft.last(proto.EventTurnStarted)
		if turn == nil || turn.Turn == nil {
			t.Fatalf("%s missed the first turn", name)
		}
		if !turn.Turn.IsMatchStart || turn.Turn.TurnNumber != 1 {
			t.Fatalf("%s first turn = %+v, want match-start turn 1", name, turn.Turn)
		}
	}

	// Only the turn holder gets a non-zero action mask.
	if mask := fa.last(proto.EventTurnStarted).Turn.ValidActions; mask&proto.ValidEndTurn == 0 {
		t.Fatalf("host mask = %b, want end-turn valid", mask)
	}
	if mask := fb.last(proto.EventTurnStarted).Turn.ValidActions; mask != 0 {
		t.Fatalf("waiting player mask = %b, want 0", mask)
	}
	_ = b
}

func TestEndTurnAdvancesAndPaysIncome(t *testing.T) {
	s := newTestServer(t)
	a, _ := join(t, s, "Alpha")
	b, fb := join(t, s, "Bravo")
	startMatch(t, s, a)

	// Half-damaged planet earns floor(25 * 0.5) = 12 stars.
	setPlayer(s, b.playerID, func(p *proto.PlayerInfo) {
		p.Planet.BaseIncome = 25
		p.Planet.MaxHealth = 1000
		p.Planet.CurrentHealth = 500
	})
	before := player(s, b.playerID).Stars

	endTurn(s, a)

	number, current := currentTurn(s)
	if number != 2 || current != b.playerID {
		t.Fatalf("turn = %d/%d, want 2 held by %d", number, current, b.playerID)
	}
	after := player(s, b.playerID).Stars
	if after-before != 12 {
		t.Fatalf("income = %d, want 12", after-before)
	}

	turn := fb.last(proto.EventTurnStarted)
	if turn.Turn.LastAction.Action != proto.ActionEndTurn || turn.Turn.LastAction.PlayerID != a.playerID {
		t.Fatalf("last action = %+v, want end turn by %d", turn.Turn.LastAction, a.playerID)
	}
}

func TestFullHealthPlanetEarnsFullIncome(t *testing.T) {
	s := newTestServer(t)
	a, _ := join(t, s, "Alpha")
	b, _ := join(t, s, "Bravo")
	startMatch(t, s, a)

	before := player(s, b.playerID).Stars
	endTurn(s, a)
	after := player(s, b.playerID).Stars
	if after-before != planetIncomeAt(planetStartLevel) {
		t.Fatalf("income = %d, want %d", after-before, planetIncomeAt(planetStartLevel))
	}
}

func TestComputeValidActions(t *testing.T) {
	s := newTestServer(t)
	a, _ := join(t, s, "Alpha")
	b, _ := join(t, s, "Bravo")
	startMatch(t, s, a)

	s.mu.Lock()
	mask := s.computeValidActionsLocked(a.playerID)
	s.mu.Unlock()
	want := proto.ValidEndTurn | proto.ValidAttackPlanet | proto.ValidUpgradePlanet | proto.ValidUpgradeShip
	if mask != want {
		t.Fatalf("mask = %b, want %b", mask, want)
	}

	// Damaged planet enables repair.
	setPlayer(s, a.playerID, func(p *proto.PlayerInfo) { p.Planet.CurrentHealth-- })
	s.mu.Lock()
	mask = s.computeValidActionsLocked(a.playerID)
	s.mu.Unlock()
	if mask&proto.ValidRepairPlanet == 0 {
		t.Fatalf("mask = %b, want repair valid", mask)
	}

	// Broke players cannot buy upgrades.
	setPlayer(s, a.playerID, func(p *proto.PlayerInfo) { p.Stars = 0 })
	s.mu.Lock()
	mask = s.computeValidActionsLocked(a.playerID)
	s.mu.Unlock()
	if mask&(proto.ValidUpgradePlanet|proto.ValidUpgradeShip) != 0 {
		t.Fatalf("mask = %b, upgrades must be gated on holding stars", mask)
	}

	// No attackable target once every other planet is rubble.
	setPlayer(s, b.playerID, func(p *proto.PlayerInfo) { p.Planet.CurrentHealth = 0 })
	s.mu.Lock()
	mask = s.computeValidActionsLocked(a.playerID)
	s.mu.Unlock()
	if mask&proto.ValidAttackPlanet != 0 {
		t.Fatalf("mask = %b, no attack without a live target", mask)
	}

	// Never the waiting player's turn.
	s.mu.Lock()
	mask = s.computeValidActionsLocked(b.playerID)
	s.mu.Unlock()
	if mask != 0 {
		t.Fatalf("waiting player mask = %b, want 0", mask)
	}
}

func TestDisconnectOfCurrentPlayerForceAdvances(t *testing.T) {
	s := newTestServer(t)
	a, _ := join(t, s, "Alpha")
	b, _ := join(t, s, "Bravo")
	join(t, s, "Charlie")
	startMatch(t, s, a)

	s.dropSession(a)

	_, current := currentTurn(s)
	if current != b.playerID {
		t.Fatalf("turn holder after host disconnect = %d, want %d", current, b.playerID)
	}
	s.mu.Lock()
	started := s.matchStarted
	s.mu.Unlock()
	if !started {
		t.Fatal("match must keep running with two players left")
	}
}

func TestDisconnectForcedAdvanceCanWinTheMatch(t *testing.T) {
	s := newTestServer(t)
	notifier := &recordingNotifier{}
	s.notifier = notifier
	a, _ := join(t, s, "Alpha")
	b, fb := join(t, s, "Bravo")
	join(t, s, "Charlie")
	startMatch(t, s, a)

	// The income credited by the forced advance pushes B past the goal.
	setPlayer(s, b.playerID, func(p *proto.PlayerInfo) { p.Stars = starGoal - 1 })

	s.dropSession(a)

	s.mu.Lock()
	over, winner := s.gameOver, s.winnerID
	s.mu.Unlock()
	if !over || winner != b.playerID {
		t.Fatalf("gameOver=%v winner=%d, want win for %d", over, winner, b.playerID)
	}
	gameOver := fb.last(proto.EventGameOver)
	if gameOver == nil || gameOver.GameOver == nil || gameOver.GameOver.WinnerID != b.playerID {
		t.Fatalf("winner's game-over event = %+v", gameOver)
	}
	notifier.mu.Lock()
	ended := append([]int32(nil), notifier.ended...)
	notifier.mu.Unlock()
	if len(ended) != 1 || ended[0] != b.playerID {
		t.Fatalf("match-ended notifications = %v, want [%d]", ended, b.playerID)
	}
}

func TestDropBelowMinimumStopsMatch(t *testing.T) {
	s := newTestServer(t)
	a, fa := join(t, s, "Alpha")
	b, _ := join(t, s, "Bravo")
	startMatch(t, s, a)
	endTurn(s, a) // B's turn

	s.dropSession(b)

	s.mu.Lock()
	started, count := s.matchStarted, s.playerCount
	s.mu.Unlock()
	if started {
		t.Fatal("match must stop below the player minimum")
	}
	if count != 1 {
		t.Fatalf("playerCount = %d, want 1", count)
	}

	stop := fa.last(proto.EventMatchStop)
	if stop == nil || stop.MatchStop == nil {
		t.Fatal("survivor did not receive the match-stop notice")
	}
	if stop.MatchStop.Reason != "Not enough players" {
		t.Fatalf("stop reason = %q", stop.MatchStop.Reason)
	}
}

func TestActionsBeforeMatchStartAreRejected(t *testing.T) {
	s := newTestServer(t)
	a, fa := join(t, s, "Alpha")
	join(t, s, "Bravo")

	endTurn(s, a)

	errEv := fa.last(proto.EventError)
	if errEv == nil || errEv.Error == nil || errEv.Error.Code != proto.ErrCodeMatchNotStarted {
		t.Fatalf("expected match-not-started error, got %+v", errEv)
	}
}

func TestOutOfTurnActionsAreSilentlyIgnored(t *testing.T) {
	s := newTestServer(t)
	a, _ := join(t, s, "Alpha")
	b, fb := join(t, s, "Bravo")
	startMatch(t, s, a)

	fb.reset()
	sendAction(s, b, proto.UserAction{Action: proto.ActionUpgradePlanet})

	if errEv := fb.last(proto.EventError); errEv != nil {
		t.Fatalf("out-of-turn action must be ignored, got error %+v", errEv.Error)
	}
	if p := player(s, b.playerID); p.Planet.Level != planetStartLevel {
		t.Fatal("out-of-turn action mutated state")
	}
	if _, current := currentTurn(s); current != a.playerID {
		t.Fatal("turn moved on an ignored action")
	}
}
