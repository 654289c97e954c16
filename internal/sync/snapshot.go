// Package sync implements the versioned state synchronizer (spec.md
// §4.4): authoritative snapshots with monotonically increasing
// versions, content-addressed hashing, delta generation/application,
// and conflict resolution. It generalizes the deep-clone-on-emit
// pattern the teacher uses in internal/game/table.go's copyState, and
// the teacher's rules.EngineRegistry singleton-with-mutex idiom for
// the synchronizer's own serialized version counter.
package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"poker-platform/internal/domain"
)

// Snapshot is an immutable, content-addressed view of a table's state
// at a point in time. GameState and PlayerStates are built from plain
// maps so canonical encoding (sorted object keys) falls out of Go's
// default JSON map marshaling without a bespoke encoder.
type Snapshot struct {
	Version      uint64
	Hash         string
	GameState    map[string]interface{}
	PlayerStates map[string]map[string]interface{}
	Timestamp    time.Time
}

// potView gives side pots a stable field set before conversion to
// maps, so canonicalEncode's map round-trip sorts identical key sets
// the same way on every call.
type potView struct {
	Amount   int64    `json:"amount"`
	Eligible []string `json:"eligible"`
	IsSide   bool     `json:"is_side"`
}

func buildGameState(state *domain.TableState) map[string]interface{} {
	cards := make([]string, len(state.CommunityCards))
	for i, c := range state.CommunityCards {
		cards[i] = c.String()
	}

	pots := make([]potView, len(state.SidePots))
	for i, p := range state.SidePots {
		ids := make([]string, 0, len(p.Eligible))
		for id, ok := range p.Eligible {
			if ok {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		pots[i] = potView{Amount: p.Amount, Eligible: ids, IsSide: p.IsSide}
	}

	view := map[string]interface{}{
		"table_id":        state.TableID,
		"hand_number":     state.HandNumber,
		"phase":           state.Phase.String(),
		"dealer_seat":     state.DealerSeat,
		"sb_seat":         state.SBSeat,
		"bb_seat":         state.BBSeat,
		"to_act_seat":     state.ToActSeat,
		"community_cards": cards,
		"current_bet":     state.CurrentBet,
		"min_raise":       state.MinRaise,
		"pot":             state.Pot,
		"side_pots":       pots,
		"deck_handle":     state.DeckHandle,
	}
	return roundTrip(view)
}

func buildPlayerStates(state *domain.TableState) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(state.PlayersBySeat))
	for _, p := range state.PlayersBySeat {
		if p == nil {
			continue
		}
		fields := map[string]interface{}{
			"seat":                 p.Seat,
			"chips":                p.Chips,
			"current_bet_round":    p.CurrentBetRound,
			"total_bet_this_hand":  p.TotalBetThisHand,
			"folded":               p.Folded,
			"all_in":               p.AllIn,
			"sitting_out":          p.SittingOut,
			"connected":            p.Connected,
		}
		out[p.ID] = roundTrip(fields)
	}
	return out
}

// roundTrip marshals then unmarshals into a generic value so every
// nested object becomes a map[string]interface{}, whose keys
// encoding/json always serializes in sorted order — this is how
// canonicalEncode achieves the spec's "object keys sorted
// lexicographically" requirement without a hand-rolled encoder.
func roundTrip(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}

// canonicalEncode produces the canonical JSON encoding of a snapshot's
// visible content (version, game state, player states) used both for
// hashing and for size checks in the sync protocol.
func canonicalEncode(version uint64, gameState map[string]interface{}, playerStates map[string]map[string]interface{}) []byte {
	payload := map[string]interface{}{
		"version":       version,
		"game_state":    gameState,
		"player_states": playerStates,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return raw
}

func hashOf(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// NewSnapshot deep-clones state into an immutable Snapshot tagged with
// version, computing its content hash over the canonical encoding.
// Callers are expected to hold the synchronizer's version lock while
// assigning version, per spec.md §4.4.
func NewSnapshot(version uint64, state *domain.TableState) Snapshot {
	gameState := buildGameState(state)
	playerStates := buildPlayerStates(state)
	hash := hashOf(canonicalEncode(version, gameState, playerStates))
	return Snapshot{
		Version:      version,
		Hash:         hash,
		GameState:    gameState,
		PlayerStates: playerStates,
		Timestamp:    time.Now(),
	}
}

// Validate reports whether s is structurally well-formed: pot >= 0,
// every player's chips >= 0, and the recomputed hash matches the
// stored hash (spec.md §4.4 "Validation").
func (s Snapshot) Validate() bool {
	if pot, ok := s.GameState["pot"].(float64); ok && pot < 0 {
		return false
	}
	for _, fields := range s.PlayerStates {
		if chips, ok := fields["chips"].(float64); ok && chips < 0 {
			return false
		}
	}
	recomputed := hashOf(canonicalEncode(s.Version, s.GameState, s.PlayerStates))
	return recomputed == s.Hash
}

// clone returns a deep copy of s, so emitted snapshots never alias the
// synchronizer's internal history (spec.md §9 "Value vs reference
// clones").
func (s Snapshot) clone() Snapshot {
	raw, err := json.Marshal(s.GameState)
	if err != nil {
		panic(err)
	}
	var gameState map[string]interface{}
	if err := json.Unmarshal(raw, &gameState); err != nil {
		panic(err)
	}

	rawPlayers, err := json.Marshal(s.PlayerStates)
	if err != nil {
		panic(err)
	}
	var playerStates map[string]map[string]interface{}
	if err := json.Unmarshal(rawPlayers, &playerStates); err != nil {
		panic(err)
	}

	return Snapshot{
		Version:      s.Version,
		Hash:         s.Hash,
		GameState:    gameState,
		PlayerStates: playerStates,
		Timestamp:    s.Timestamp,
	}
}
