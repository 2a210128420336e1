package server

import "armada/server/internal/proto"

// findOpenSlotLocked returns the first inactive slot below the configured
// capacity, or NoPlayer if the lobby is full.
func (s *Server) findOpenSlotLocked() int32 {
	for i := 0; i < s.maxPlayers; i++ {
		if !s.players[i].Active {
			return int32(i)
		}
	}
	return proto.NoPlayer
}

// resetSlotLocked seats a player with starting stats.
func (s *Server) resetSlotLocked(slot int32, name string) {
	s.players[slot] = proto.PlayerInfo{
		PlayerID:  slot,
		Name:      name,
		Active:    true,
		Connected: true,
		Stars:     startingStars,
		Planet: proto.PlanetStats{
			Level:         planetStartLevel,
			MaxHealth:     planetMaxHealthAt(planetStartLevel),
			CurrentHealth: planetMaxHealthAt(planetStartLevel),
			BaseIncome:    planetIncomeAt(planetStartLevel),
			UpgradeCost:   planetUpgradeCost(planetStartLevel),
		},
		Ship: proto.ShipStats{
			Level:         shipStartLevel,
			MaxHealth:     shipBaseMaxHealth,
			CurrentHealth: shipBaseMaxHealth,
			BaseDamage:    shipDamageAt(shipStartLevel),
			UpgradeCost:   shipUpgradeCost(shipStartLevel),
		},
	}
	s.refreshPlayerCountLocked()
}

// refreshPlayerCountLocked recomputes the derived player count after any
// membership change.
func (s *Server) refreshPlayerCountLocked() {
	count := 0
	for i := range s.players {
		if s.players[i].Active {
			count++
		}
	}
	s.playerCount = count
}
