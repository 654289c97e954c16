// Package betting implements the fold/check/call/bet/raise/all-in
// rules (spec.md §4.2): action availability, validation with caching,
// and execution producing the next authoritative player/table state.
package betting

import (
	"fmt"

	"poker-platform/internal/domain"
)

// Engine validates and executes a single player action at a time. One
// Engine belongs to one table; its validation cache is not shared.
type Engine struct {
	cache *validationCache
}

// NewEngine creates a betting engine with the default validation cache
// soft cap (5,000 entries, spec.md §4.2).
func NewEngine() *Engine {
	return &Engine{cache: newValidationCache(defaultSoftCap)}
}

// callAmount is the chips a player must add to match the table's
// current bet.
func callAmount(player *domain.Player, state *domain.TableState) int64 {
	return state.CurrentBet - player.CurrentBetRound
}

// AvailableActions returns the subset of action kinds legal for player
// in the given state. It is defined consistently with Validate: a kind
// appears here iff Validate(kind, ...).ok (invariant 6, spec.md §8).
func (e *Engine) AvailableActions(player *domain.Player, state *domain.TableState, cfg domain.TableConfig) []domain.ActionKind {
	var actions []domain.ActionKind
	if player == nil || !player.IsActionable() {
		return actions
	}

	if !player.Folded {
		actions = append(actions, domain.ActionFold)
	}

	call := callAmount(player, state)
	if call == 0 {
		actions = append(actions, domain.ActionCheck)
	} else if player.Chips >= call {
		actions = append(actions, domain.ActionCall)
	}

	if state.CurrentBet == 0 {
		if player.Chips >= cfg.BigBlind {
			actions = append(actions, domain.ActionBet)
		}
	} else {
		minRaiseTotal := state.CurrentBet + state.MinRaise
		if player.Chips >= minRaiseTotal-player.CurrentBetRound {
			actions = append(actions, domain.ActionRaise)
		}
	}

	if player.Chips > 0 {
		actions = append(actions, domain.ActionAllIn)
	}

	return actions
}

// Validate checks whether action is currently legal for player,
// returning nil on success or a populated *domain.ActionError on
// failure. Results are cached by (kind, amount, player_id,
// current_bet, phase).
func (e *Engine) Validate(action domain.PlayerActionRequest, player *domain.Player, state *domain.TableState, cfg domain.TableConfig) *domain.ActionError {
	key := cacheKey{
		kind:       action.Kind,
		amount:     action.Amount,
		playerID:   action.PlayerID,
		currentBet: state.CurrentBet,
		phase:      state.Phase,
	}
	if entry, ok := e.cache.get(key); ok {
		return entry.err
	}

	err := e.validate(action, player, state, cfg)
	e.cache.put(key, cacheEntry{err: err, cached: true})
	return err
}

func (e *Engine) validate(action domain.PlayerActionRequest, player *domain.Player, state *domain.TableState, cfg domain.TableConfig) *domain.ActionError {
	if player == nil {
		return domain.NewActionError(domain.ErrPlayerNotFound, "player not found", domain.Hint{})
	}
	if !player.IsActionable() {
		return domain.NewActionError(domain.ErrPlayerNotActive, "player is not active", domain.Hint{})
	}

	call := callAmount(player, state)

	switch action.Kind {
	case domain.ActionFold:
		if player.Folded {
			return domain.NewActionError(domain.ErrIllegalAction, "already folded", domain.Hint{})
		}
		return nil

	case domain.ActionCheck:
		if call != 0 {
			return domain.NewActionError(domain.ErrIllegalAction, "cannot check, there is a bet to call", domain.Hint{CallAmount: call})
		}
		return nil

	case domain.ActionCall:
		if call <= 0 {
			return domain.NewActionError(domain.ErrIllegalAction, "cannot call, there is nothing to call", domain.Hint{})
		}
		if player.Chips < call {
			return domain.NewActionError(domain.ErrInsufficientFunds, "not enough chips to call", domain.Hint{CallAmount: call})
		}
		return nil

	case domain.ActionBet:
		if state.CurrentBet != 0 {
			return domain.NewActionError(domain.ErrIllegalAction, "cannot bet, a bet is already in", domain.Hint{})
		}
		if action.Amount < cfg.BigBlind || action.Amount > player.Chips {
			return domain.NewActionError(domain.ErrValidation, "bet size outside legal range", domain.Hint{MinBet: cfg.BigBlind, MaxBet: player.Chips})
		}
		return nil

	case domain.ActionRaise:
		if state.CurrentBet == 0 {
			return domain.NewActionError(domain.ErrIllegalAction, "cannot raise, no bet to raise", domain.Hint{})
		}
		minTotal := state.CurrentBet + state.MinRaise
		if action.Amount < minTotal {
			return domain.NewActionError(domain.ErrValidation, "raise below minimum", domain.Hint{MinBet: minTotal, MaxBet: player.Chips + player.CurrentBetRound})
		}
		if action.Amount-player.CurrentBetRound > player.Chips {
			return domain.NewActionError(domain.ErrInsufficientFunds, "raise exceeds chip stack", domain.Hint{MaxBet: player.Chips + player.CurrentBetRound})
		}
		return nil

	case domain.ActionAllIn:
		if player.Chips <= 0 {
			return domain.NewActionError(domain.ErrIllegalAction, "no chips to go all in with", domain.Hint{})
		}
		return nil

	default:
		return domain.NewActionError(domain.ErrValidation, "unknown action kind", domain.Hint{})
	}
}

// ExecuteResult is the outcome of applying one action.
type ExecuteResult struct {
	NextCurrentBet  int64
	PotContribution int64
	UpdatedPlayer   domain.Player
}

// Execute applies action to player and state, assuming Validate has
// already returned nil for the same action — callers must not invoke
// Execute on an action that failed validation.
func (e *Engine) Execute(action domain.PlayerActionRequest, player *domain.Player, state *domain.TableState, cfg domain.TableConfig) (ExecuteResult, error) {
	switch action.Kind {
	case domain.ActionFold:
		player.Folded = true
		markActed(state, player.Seat)
		return ExecuteResult{NextCurrentBet: state.CurrentBet, UpdatedPlayer: *player}, nil

	case domain.ActionCheck:
		markActed(state, player.Seat)
		return ExecuteResult{NextCurrentBet: state.CurrentBet, UpdatedPlayer: *player}, nil

	case domain.ActionCall:
		amt := callAmount(player, state)
		if amt > player.Chips {
			amt = player.Chips
		}
		contribute(player, state, amt)
		markActed(state, player.Seat)
		return ExecuteResult{NextCurrentBet: state.CurrentBet, PotContribution: amt, UpdatedPlayer: *player}, nil

	case domain.ActionBet:
		amt := action.Amount
		contribute(player, state, amt)
		state.CurrentBet = player.CurrentBetRound
		reopenBetting(state, player.Seat)
		return ExecuteResult{NextCurrentBet: state.CurrentBet, PotContribution: amt, UpdatedPlayer: *player}, nil

	case domain.ActionRaise:
		previousBet := state.CurrentBet
		amt := action.Amount - player.CurrentBetRound
		contribute(player, state, amt)
		state.CurrentBet = player.CurrentBetRound
		state.MinRaise = state.CurrentBet - previousBet
		reopenBetting(state, player.Seat)
		return ExecuteResult{NextCurrentBet: state.CurrentBet, PotContribution: amt, UpdatedPlayer: *player}, nil

	case domain.ActionAllIn:
		amt := player.Chips
		previousBet := state.CurrentBet
		contribute(player, state, amt)
		player.AllIn = true
		if player.CurrentBetRound > state.CurrentBet {
			increase := player.CurrentBetRound - previousBet
			state.CurrentBet = player.CurrentBetRound
			if increase >= state.MinRaise {
				// Full raise: reopens action and sets the new min-raise size.
				state.MinRaise = increase
				reopenBetting(state, player.Seat)
			} else {
				// Under-raise all-in: does not reopen betting for players
				// who already acted this round, but they still owe the
				// difference, so their acted flag is cleared.
				markOwingUnacted(state, player.Seat)
			}
		}
		markActed(state, player.Seat)
		return ExecuteResult{NextCurrentBet: state.CurrentBet, PotContribution: amt, UpdatedPlayer: *player}, nil

	default:
		return ExecuteResult{}, fmt.Errorf("betting: unknown action kind %v", action.Kind)
	}
}

func contribute(player *domain.Player, state *domain.TableState, amount int64) {
	if amount < 0 {
		amount = 0
	}
	if amount > player.Chips {
		amount = player.Chips
	}
	player.Chips -= amount
	player.CurrentBetRound += amount
	player.TotalBetThisHand += amount
	state.Pot += amount
	if player.Chips == 0 {
		player.AllIn = true
	}
}

func markActed(state *domain.TableState, seat int) {
	if state.ActedSinceAggro == nil {
		state.ActedSinceAggro = make(map[int]bool)
	}
	state.ActedSinceAggro[seat] = true
}

// reopenBetting clears every player's acted flag except the aggressor,
// since a bet or full raise requires everyone else to act again.
func reopenBetting(state *domain.TableState, aggressorSeat int) {
	for seat := range state.ActedSinceAggro {
		state.ActedSinceAggro[seat] = (seat == aggressorSeat)
	}
	if state.ActedSinceAggro == nil {
		state.ActedSinceAggro = make(map[int]bool)
	}
	state.ActedSinceAggro[aggressorSeat] = true
}

// markOwingUnacted clears the acted flag only for players who still
// owe chips to match the table's current bet (used by a short all-in
// that does not reopen full betting).
func markOwingUnacted(state *domain.TableState, allInSeat int) {
	for seat, player := range state.PlayersBySeat {
		if seat == allInSeat || player == nil {
			continue
		}
		if player.IsActionable() && player.CurrentBetRound < state.CurrentBet {
			state.ActedSinceAggro[seat] = false
		}
	}
}

// RoundComplete reports whether the current betting round has ended:
// every non-folded, non-all-in player has acted since the last
// aggressive action and matched the current bet. A single remaining
// non-folded player also ends the round (and the hand).
func RoundComplete(state *domain.TableState) bool {
	remaining := 0
	for _, p := range state.PlayersBySeat {
		if p == nil || p.Folded {
			continue
		}
		remaining++
	}
	if remaining <= 1 {
		return true
	}

	for seat, p := range state.PlayersBySeat {
		if p == nil || p.Folded || p.AllIn || p.SittingOut {
			continue
		}
		if !state.ActedSinceAggro[seat] {
			return false
		}
		if p.CurrentBetRound != state.CurrentBet {
			return false
		}
	}
	return true
}
