// Package proto defines the wire types shared by the match server and its
// clients: the event union, the per-viewer snapshot, the valid-action
// bitmask, and the fixed-size binary frame codec.
package proto

// EventType discriminates the payload carried by an Event frame.
type EventType uint32

const (
	EventUnknown EventType = iota
	EventJoinRequest
	EventJoinAck
	// Player lifecycle
	EventPlayerJoined
	EventPlayerLeft
	// Match lifecycle
	EventHostUpdated
	EventMatchStartRequest
	EventMatchStart
	EventMatchStop
	// Turn loop
	EventTurnStarted
	// Client commands routed via the server
	EventUserAction
	// Gameplay notifications
	EventStarThresholdReached
	EventDefenseFull
	EventGameOver
	EventError
)

// String names an event type for logs and diagnostics.
func (t EventType) String() string {
	switch t {
	case EventJoinRequest:
		return "join_request"
	case EventJoinAck:
		return "join_ack"
	case EventPlayerJoined:
		return "player_joined"
	case EventPlayerLeft:
		return "player_left"
	case EventHostUpdated:
		return "host_updated"
	case EventMatchStartRequest:
		return "match_start_request"
	case EventMatchStart:
		return "match_start"
	case EventMatchStop:
		return "match_stop"
	case EventTurnStarted:
		return "turn_started"
	case EventUserAction:
		return "user_action"
	case EventStarThresholdReached:
		return "star_threshold_reached"
	case EventDefenseFull:
		return "defense_full"
	case EventGameOver:
		return "game_over"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// ActionType identifies a player command inside a UserAction payload.
type ActionType int32

const (
	ActionNone ActionType = iota
	ActionEndTurn
	ActionAttackPlanet
	ActionRepairPlanet
	ActionUpgradePlanet
	ActionUpgradeShip
	ActionSetDefense
)

// String names an action type for logs and diagnostics.
func (a ActionType) String() string {
	switch a {
	case ActionEndTurn:
		return "end_turn"
	case ActionAttackPlanet:
		return "attack_planet"
	case ActionRepairPlanet:
		return "repair_planet"
	case ActionUpgradePlanet:
		return "upgrade_planet"
	case ActionUpgradeShip:
		return "upgrade_ship"
	case ActionSetDefense:
		return "set_defense"
	default:
		return "none"
	}
}

// Valid-action bitmask sent to each viewer with every turn event.
const (
	ValidEndTurn       uint32 = 1 << 0
	ValidAttackPlanet  uint32 = 1 << 1
	ValidRepairPlanet  uint32 = 1 << 2
	ValidUpgradePlanet uint32 = 1 << 3
	ValidUpgradeShip   uint32 = 1 << 4
)

// Error codes carried by EventError payloads.
const (
	ErrCodeServerFull        int32 = 1
	ErrCodeNotHost           int32 = 2
	ErrCodeNotEnoughPlayers  int32 = 3
	ErrCodeMatchNotStarted   int32 = 4
	ErrCodeNotYourTurn       int32 = 5
	ErrCodeInsufficientStars int32 = 6
	ErrCodeInvalidTarget     int32 = 7
	ErrCodeMatchStarted      int32 = 8
	ErrCodeMatchOver         int32 = 9
)

// ServerSender is the sender id stamped on frames originated by the server.
const ServerSender int32 = -1

const (
	// MaxPlayers is the fixed slot capacity of a match.
	MaxPlayers = 4
	// MaxNameLen is the wire budget for a display name, including the
	// terminating NUL.
	MaxNameLen = 32
)

// NoPlayer is the sentinel slot id meaning "no player".
const NoPlayer int32 = -1

// Discovery tokens exchanged over UDP.
const (
	DiscoveryRequest  = "ARMADA_DISCOVER_V1"
	DiscoveryResponse = "ARMADA_SERVER_V1"
)

// PlanetStats describes one player's planet.
type PlanetStats struct {
	Level         int32 `json:"level"`
	MaxHealth     int32 `json:"maxHealth"`
	CurrentHealth int32 `json:"currentHealth"`
	BaseIncome    int32 `json:"baseIncome"`
	UpgradeCost   int32 `json:"upgradeCost"`
}

// ShipStats describes one player's ship.
type ShipStats struct {
	Level         int32 `json:"level"`
	MaxHealth     int32 `json:"maxHealth"`
	CurrentHealth int32 `json:"currentHealth"`
	BaseDamage    int32 `json:"baseDamage"`
	UpgradeCost   int32 `json:"upgradeCost"`
}

// PlayerInfo is the full-fidelity record for one slot. A viewer only ever
// receives their own PlayerInfo; everyone else is projected into PublicInfo.
type PlayerInfo struct {
	PlayerID         int32       `json:"playerId"`
	Name             string      `json:"name"`
	Active           bool        `json:"active"`
	Connected        bool        `json:"connected"`
	Stars            int32       `json:"stars"`
	DefensePosture   int32       `json:"defensePosture"`
	CrossedThreshold bool        `json:"crossedThreshold"`
	Planet           PlanetStats `json:"planet"`
	Ship             ShipStats   `json:"ship"`
}

// PublicInfo is the fog-of-war projection of one slot: exact stars appear
// only after that player crossed the warning threshold, and health is
// bucketed into coarse tiers.
type PublicInfo struct {
	PlayerID           int32 `json:"playerId"`
	PlanetLevel        int32 `json:"planetLevel"`
	ShipLevel          int32 `json:"shipLevel"`
	ShipBaseDamage     int32 `json:"shipBaseDamage"`
	ShowStars          bool  `json:"showStars"`
	Stars              int32 `json:"stars"`
	CoarsePlanetHealth int32 `json:"coarsePlanetHealth"`
	CoarseShipHealth   int32 `json:"coarseShipHealth"`
}

// PlayerSnapshot is the per-viewer projection of the match state. ViewerID
// is NoPlayer for observers, in which case Self is zeroed.
type PlayerSnapshot struct {
	ViewerID int32                  `json:"viewerId"`
	Self     PlayerInfo             `json:"self"`
	Entries  [MaxPlayers]PublicInfo `json:"entries"`
}

// JoinRequest asks for a slot under a display name.
type JoinRequest struct {
	Name string `json:"name"`
}

// JoinAck answers a join request.
type JoinAck struct {
	PlayerID     int32  `json:"playerId"`
	Success      bool   `json:"success"`
	HostPlayerID int32  `json:"hostPlayerId"`
	IsHost       bool   `json:"isHost"`
	Message      string `json:"message"`
}

// PlayerLifecycle announces a join or leave to every connected player.
type PlayerLifecycle struct {
	PlayerID   int32  `json:"playerId"`
	Name       string `json:"name"`
	ReasonCode int32  `json:"reasonCode"`
}

// HostUpdate names the newly elected host, or clears it with NoPlayer.
type HostUpdate struct {
	HostPlayerID int32  `json:"hostPlayerId"`
	HostName     string `json:"hostName"`
}

// UserAction is a player command. TargetPlayerID, Value and Metadata are
// action-specific; unused fields are zero.
type UserAction struct {
	PlayerID       int32      `json:"playerId"`
	Action         ActionType `json:"action"`
	TargetPlayerID int32      `json:"targetPlayerId"`
	Value          int32      `json:"value"`
	Metadata       int32      `json:"metadata"`
}

// TurnInfo is broadcast to every connected player individually, carrying
// that viewer's snapshot and the bitmask of actions valid for that viewer.
type TurnInfo struct {
	CurrentPlayerID int32          `json:"currentPlayerId"`
	NextPlayerID    int32          `json:"nextPlayerId"`
	TurnNumber      int32          `json:"turnNumber"`
	MsPerTurn       int32          `json:"msPerTurn"`
	IsMatchStart    bool           `json:"isMatchStart"`
	ValidActions    uint32         `json:"validActions"`
	LastAction      UserAction     `json:"lastAction"`
	View            PlayerSnapshot `json:"view"`
}

// MatchStart carries the viewer's snapshot at the moment the match begins.
type MatchStart struct {
	View PlayerSnapshot `json:"view"`
}

// MatchStop tells players the match ended without a winner.
type MatchStop struct {
	ReasonCode int32  `json:"reasonCode"`
	Reason     string `json:"reason"`
}

// Threshold is the one-shot warning that a player's stars crossed the
// visibility threshold.
type Threshold struct {
	PlayerID     int32 `json:"playerId"`
	Threshold    int32 `json:"threshold"`
	CurrentTotal int32 `json:"currentTotal"`
}

// DefenseFull announces that a player reached full defense posture.
type DefenseFull struct {
	DefenderID     int32 `json:"defenderId"`
	WasFullDefense bool  `json:"wasFullDefense"`
	StarsReset     bool  `json:"starsReset"`
}

// GameOver names the winner and the reason text.
type GameOver struct {
	WinnerID int32  `json:"winnerId"`
	Reason   string `json:"reason"`
}

// ErrorInfo is surfaced to a single requesting player when a game-rule
// check rejects their request. No state mutation accompanies it.
type ErrorInfo struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// Event is the tagged union exchanged on the wire. Exactly one payload
// pointer matching Type is non-nil; the rest stay nil.
type Event struct {
	Type      EventType `json:"type"`
	SenderID  int32     `json:"senderId"`
	Timestamp int64     `json:"timestamp"`

	Join       *JoinRequest     `json:"join,omitempty"`
	JoinAck    *JoinAck         `json:"joinAck,omitempty"`
	Lifecycle  *PlayerLifecycle `json:"lifecycle,omitempty"`
	Host       *HostUpdate      `json:"host,omitempty"`
	Action     *UserAction      `json:"action,omitempty"`
	Turn       *TurnInfo        `json:"turn,omitempty"`
	MatchStart *MatchStart      `json:"matchStart,omitempty"`
	MatchStop  *MatchStop       `json:"matchStop,omitempty"`
	Threshold  *Threshold       `json:"threshold,omitempty"`
	Defense    *DefenseFull     `json:"defense,omitempty"`
	GameOver   *GameOver        `json:"gameOver,omitempty"`
	Error      *ErrorInfo       `json:"error,omitempty"`
}
