// Package domain holds the shared poker-table data model (spec.md §3):
// players, table config/state, pots, and player actions. It has no
// behavior of its own — internal/betting, internal/table, internal/sync
// and internal/recovery all operate on these types without importing
// each other, avoiding import cycles the way the teacher's
// internal/game/rules package separates types from the game loop.
package domain

import (
	"time"

	"poker-platform/internal/poker"
)

// GamePhase is a state in the table's hand lifecycle.
type GamePhase int

const (
	PhaseWaiting GamePhase = iota
	PhasePreFlop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
	PhaseFinished
)

var gamePhaseNames = [...]string{
	"waiting", "pre_flop", "flop", "turn", "river", "showdown", "finished",
}

func (p GamePhase) String() string {
	if p >= 0 && int(p) < len(gamePhaseNames) {
		return gamePhaseNames[p]
	}
	return "unknown"
}

// ActionKind is a player's betting action.
type ActionKind int

const (
	ActionFold ActionKind = iota
	ActionCheck
	ActionCall
	ActionBet
	ActionRaise
	ActionAllIn
)

var actionKindNames = [...]string{"fold", "check", "call", "bet", "raise", "all_in"}

func (a ActionKind) String() string {
	if a >= 0 && int(a) < len(actionKindNames) {
		return actionKindNames[a]
	}
	return "unknown"
}

// PlayerRole is the authority class an action record is attributed to.
type PlayerRole int

const (
	RolePlayer PlayerRole = iota
	RoleDealer
	RoleAdmin
)

// AuthorityLevel returns the default numeric authority for a role:
// ADMIN=3, DEALER=2, PLAYER=1, per spec.md §3.
func (r PlayerRole) AuthorityLevel() uint8 {
	switch r {
	case RoleAdmin:
		return 3
	case RoleDealer:
		return 2
	default:
		return 1
	}
}

// GameType names the poker variant a table runs. Texas Hold'em is the
// only game type defined in this repo (see SPEC_FULL.md's
// "multi-variant registry" section).
type GameType string

const (
	GameTypeTexasHoldem GameType = "texas_hold'em"
)

// Player is a seated participant. folded ⇒ not acting; all_in ⇒
// chips==0; a connected player with chips==0 and not all-in is
// sitting out, not actionable.
type Player struct {
	ID                string
	Seat              int
	Chips             int64
	CurrentBetRound   int64
	TotalBetThisHand  int64
	Folded            bool
	AllIn             bool
	SittingOut        bool
	Connected         bool
	LastAction        *ActionKind
	HoleCards         []poker.Card
}

// IsActionable reports whether the player can be asked to act.
func (p *Player) IsActionable() bool {
	return p != nil && p.Connected && !p.Folded && !p.AllIn && !p.SittingOut && p.Chips > 0
}

// TableConfig is immutable after table creation.
type TableConfig struct {
	TableID    string
	GameType   GameType
	SmallBlind int64
	BigBlind   int64
	MinBuyIn   int64
	MaxBuyIn   int64
	MaxSeats   int
}

// Pot is the main pot or a side pot, with its eligible contributor set.
type Pot struct {
	Amount    int64
	Eligible  map[string]bool // player id -> eligible
	IsSide    bool
}

// TableState is the authoritative per-hand state of a table.
type TableState struct {
	TableID        string
	HandNumber     int
	Phase          GamePhase
	DealerSeat     int
	SBSeat         int
	BBSeat         int
	ToActSeat      int
	CommunityCards []poker.Card
	CurrentBet     int64
	MinRaise       int64
	Pot            int64
	SidePots       []Pot
	PlayersBySeat  map[int]*Player
	DeckHandle     string
	ActedSinceAggro map[int]bool
}

// PlayerActionRequest is an inbound action from a client.
type PlayerActionRequest struct {
	PlayerID  string
	Kind      ActionKind
	Amount    int64
	Timestamp time.Time
	Role      PlayerRole
	Authority uint8
}
