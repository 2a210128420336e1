package server

import (
	"bytes"
	"testing"

	"armada/server/internal/proto"
)

func TestCoarsePercentBuckets(t *testing.T) {
	cases := []struct {
		current, max, want int32
	}{
		{0, 1000, 0},
		{-5, 1000, 0},
		{1, 1000, 0},
		{249, 1000, 0},
		{250, 1000, 25},
		{499, 1000, 25},
		{500, 1000, 50},
		{750, 1000, 75},
		{999, 1000, 75},
		{1000, 1000, 100},
		{1200, 1000, 100},
		{10, 0, 0},
	}
	for _, tc := range cases {
		if got := coarsePercent(tc.current, tc.max); got != tc.want {
			t.Errorf("coarsePercent(%d, %d) = %d, want %d", tc.current, tc.max, got, tc.want)
		}
	}
}

func TestViewerSeesOwnExactState(t *testing.T) {
	s := newTestServer(t)
	a, _ := join(t, s, "Alpha")
	join(t, s, "Bravo")

	setPlayer(s, a.playerID, func(p *proto.PlayerInfo) { p.Stars = 123 })

	s.mu.Lock()
	snap := s.snapshotForLocked(a.playerID)
	s.mu.Unlock()

	if snap.ViewerID != a.playerID {
		t.Fatalf("viewer = %d, want %d", snap.ViewerID, a.playerID)
	}
	if snap.Self.Stars != 123 || snap.Self.Name != "Alpha" {
		t.Fatalf("self = %+v, want exact own state", snap.Self)
	}
	own := snap.Entries[a.playerID]
	if !own.ShowStars || own.Stars != 123 {
		t.Fatalf("own entry must always show stars, got %+v", own)
	}
}

func TestFogHidesStarsBelowThreshold(t *testing.T) {
	s := newTestServer(t)
	a, _ := join(t, s, "Alpha")
	b, _ := join(t, s, "Bravo")

	setPlayer(s, b.playerID, func(p *proto.PlayerInfo) { p.Stars = starWarningThreshold - 1 })

	s.mu.Lock()
	snap := s.snapshotForLocked(a.playerID)
	s.mu.Unlock()

	entry := snap.Entries[b.playerID]
	if entry.ShowStars || entry.Stars != 0 {
		t.Fatalf("opponent stars leaked below threshold: %+v", entry)
	}
	if entry.PlanetLevel != planetStartLevel || entry.ShipBaseDamage != shipDamageAt(shipStartLevel) {
		t.Fatalf("public levels missing: %+v", entry)
	}
}

func TestFogRevealsStarsAfterLatch(t *testing.T) {
	s := newTestServer(t)
	a, _ := join(t, s, "Alpha")
	b, _ := join(t, s, "Bravo")

	setPlayer(s, b.playerID, func(p *proto.PlayerInfo) {
		p.Stars = starWarningThreshold + 50
		p.CrossedThreshold = true
	})

	s.mu.Lock()
	snap := s.snapshotForLocked(a.playerID)
	s.mu.Unlock()
	entry := snap.Entries[b.playerID]
	if !entry.ShowStars || entry.Stars != starWarningThreshold+50 {
		t.Fatalf("latched opponent stars must be visible: %+v", entry)
	}

	// The reveal keys off the latch, not the instantaneous count: spending
	// below the threshold keeps it visible.
	setPlayer(s, b.playerID, func(p *proto.PlayerInfo) { p.Stars = 10 })
	s.mu.Lock()
	snap = s.snapshotForLocked(a.playerID)
	s.mu.Unlock()
	entry = snap.Entries[b.playerID]
	if !entry.ShowStars || entry.Stars != 10 {
		t.Fatalf("latch must keep stars visible after spending: %+v", entry)
	}
}

func TestOpponentHealthIsCoarse(t *testing.T) {
	s := newTestServer(t)
	a, _ := join(t, s, "Alpha")
	b, _ := join(t, s, "Bravo")

	setPlayer(s, b.playerID, func(p *proto.PlayerInfo) { p.Planet.CurrentHealth = 617 })

	s.mu.Lock()
	snap := s.snapshotForLocked(a.playerID)
	s.mu.Unlock()
	if got := snap.Entries[b.playerID].CoarsePlanetHealth; got != 50 {
		t.Fatalf("coarse planet health = %d, want 50", got)
	}
}

func TestInactiveSlotsAreZeroed(t *testing.T) {
	s := newTestServer(t)
	a, _ := join(t, s, "Alpha")
	b, _ := join(t, s, "Bravo")
	setPlayer(s, b.playerID, func(p *proto.PlayerInfo) { p.Stars = starWarningThreshold + 1; p.CrossedThreshold = true })
	s.dropSession(b)

	s.mu.Lock()
	snap := s.snapshotForLocked(a.playerID)
	s.mu.Unlock()
	entry := snap.Entries[b.playerID]
	want := proto.PublicInfo{PlayerID: b.playerID}
	if entry != want {
		t.Fatalf("inactive slot leaked state: %+v", entry)
	}
}

func TestObserverSnapshotHasNoSelf(t *testing.T) {
	s := newTestServer(t)
	join(t, s, "Alpha")
	b, _ := join(t, s, "Bravo")
	setPlayer(s, b.playerID, func(p *proto.PlayerInfo) { p.Stars = 500 })

	snap := s.ObserverSnapshot()
	if snap.ViewerID != proto.NoPlayer {
		t.Fatalf("observer viewer = %d, want NoPlayer", snap.ViewerID)
	}
	if snap.Self != (proto.PlayerInfo{}) {
		t.Fatalf("observer must carry no self state: %+v", snap.Self)
	}
	if snap.Entries[b.playerID].ShowStars {
		t.Fatal("observer must not see unrevealed stars")
	}
}

func TestSnapshotIsDeterministic(t *testing.T) {
	s := newTestServer(t)
	a, _ := join(t, s, "Alpha")
	b, _ := join(t, s, "Bravo")
	setPlayer(s, b.playerID, func(p *proto.PlayerInfo) { p.Planet.CurrentHealth = 733 })

	s.mu.Lock()
	first := s.snapshotForLocked(a.playerID)
	second := s.snapshotForLocked(a.playerID)
	s.mu.Unlock()

	encode := func(snap proto.PlayerSnapshot) []byte {
		frame, err := proto.EncodeEvent(proto.Event{
			Type:       proto.EventMatchStart,
			SenderID:   proto.ServerSender,
			MatchStart: &proto.MatchStart{View: snap},
		})
		if err != nil {
			t.Fatalf("encode snapshot: %v", err)
		}
		return frame
	}
	if !bytes.Equal(encode(first), encode(second)) {
		t.Fatal("same state must project to byte-identical views")
	}
}
