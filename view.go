package server

import "armada/server/internal/proto"

// coarseBuckets are the only health values opponents ever see.
var coarseBuckets = [...]int32{0, 25, 50, 75, 100}

// coarsePercent maps an exact health fraction to the nearest-lower coarse
// bucket. Zero health is always reported as 0, full as 100.
func coarsePercent(current, max int32) int32 {
	if max <= 0 || current <= 0 {
		return 0
	}
	if current >= max {
		return 100
	}
	pct := current * 100 / max
	bucket := int32(0)
	for _, b := range coarseBuckets {
		if pct >= b {
			bucket = b
		}
	}
	return bucket
}

// snapshotForLocked projects the match state for one viewer. The viewer
// sees their own slot exactly; every other active slot is reduced to
// public info, with exact stars revealed only once that player's threshold
// latch is set. Observers pass NoPlayer and receive no Self at all.
// Inactive slots are fully zeroed so stale stats never leak.
func (s *Server) snapshotForLocked(viewer int32) proto.PlayerSnapshot {
	snap := proto.PlayerSnapshot{ViewerID: viewer}
	if viewer != proto.NoPlayer && s.players[viewer].Active {
		snap.Self = s.players[viewer]
	}
	for i := range s.players {
		p := &s.players[i]
		entry := proto.PublicInfo{PlayerID: int32(i)}
		if p.Active {
			entry.PlanetLevel = p.Planet.Level
			entry.ShipLevel = p.Ship.Level
			entry.ShipBaseDamage = p.Ship.BaseDamage
			entry.CoarsePlanetHealth = coarsePercent(p.Planet.CurrentHealth, p.Planet.MaxHealth)
			entry.CoarseShipHealth = coarsePercent(p.Ship.CurrentHealth, p.Ship.MaxHealth)
			if int32(i) == viewer || p.CrossedThreshold {
				entry.ShowStars = true
				entry.Stars = p.Stars
			}
		}
		snap.Entries[i] = entry
	}
	return snap
}
