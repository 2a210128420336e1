package server

import "time"

const (
	// ProtocolVersion is bumped whenever the frame layout changes.
	ProtocolVersion = 1

	// DefaultPort is the TCP gameplay port and the default discovery port.
	DefaultPort = 8080

	// MinPlayers is the smallest lobby that may start a match.
	MinPlayers = 2

	// turnBudget is advertised to clients in every turn announcement.
	// The server does not enforce it; slow players simply hold the turn.
	turnBudget = 60 * time.Second
)

// Starting resources and base stats for a freshly seated player.
const (
	startingStars = 50

	planetStartLevel     = 1
	planetBaseMaxHealth  = 1000
	planetHealthPerLevel = 250
	planetBaseIncome     = 25

	shipStartLevel    = 1
	shipBaseMaxHealth = 500
	shipBaseDamage    = 15
)

// Economy and victory tuning.
const (
	// starWarningThreshold latches the public-stars reveal for a player.
	starWarningThreshold = 900

	// starGoal ends the match in favor of the first player to reach it.
	starGoal = 1000

	// fullDefensePosture is the posture value at which defense saturates
	// and resets, announced to every player.
	fullDefensePosture = 100

	repairCostPerLevel = 20
)

// planetUpgradeCost returns the star cost to upgrade a planet at the
// given level.
func planetUpgradeCost(level int32) int32 {
	return 100 * level
}

// shipUpgradeCost returns the star cost to upgrade a ship at the given
// level.
func shipUpgradeCost(level int32) int32 {
	return 80 * level
}

// repairCost returns the star cost of one repair on a planet at the
// given level.
func repairCost(level int32) int32 {
	return repairCostPerLevel * level
}

// planetMaxHealthAt returns planet max health at the given level.
func planetMaxHealthAt(level int32) int32 {
	return planetBaseMaxHealth + planetHealthPerLevel*(level-1)
}

// planetIncomeAt returns per-turn star income for a planet at the
// given level.
func planetIncomeAt(level int32) int32 {
	return planetBaseIncome * level
}

// shipDamageAt returns attack damage dealt by a ship at the given level.
func shipDamageAt(level int32) int32 {
	return shipBaseDamage * level
}
