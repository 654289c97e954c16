package table

import (
	"context"
	"sort"
	"time"

	"poker-platform/internal/betting"
	"poker-platform/internal/deck"
	"poker-platform/internal/domain"
	"poker-platform/internal/metrics"
	"poker-platform/internal/poker"
	"poker-platform/internal/recovery"
)

// occupiedSeats returns seated seat numbers in ascending order.
func (t *Table) occupiedSeats() []int {
	seats := make([]int, 0, len(t.state.PlayersBySeat))
	for seat := range t.state.PlayersBySeat {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	return seats
}

func (t *Table) countActionable() int {
	count := 0
	for _, p := range t.state.PlayersBySeat {
		if p.Connected && !p.SittingOut {
			count++
		}
	}
	return count
}

// nextSeatFrom returns the next occupied seat strictly after seat,
// wrapping around, optionally skipping folded/all-in players.
func (t *Table) nextSeatFrom(seat int, skipFoldedAllIn bool) (int, bool) {
	seats := t.occupiedSeats()
	if len(seats) == 0 {
		return 0, false
	}

	start := 0
	for i, s := range seats {
		if s == seat {
			start = i
			break
		}
	}

	for i := 1; i <= len(seats); i++ {
		candidate := seats[(start+i)%len(seats)]
		p := t.state.PlayersBySeat[candidate]
		if p == nil || p.SittingOut || !p.Connected {
			continue
		}
		if skipFoldedAllIn && (p.Folded || p.AllIn) {
			continue
		}
		return candidate, true
	}
	return 0, false
}

// callDeckOracle wraps a deck-client call with the error recovery
// fabric's circuit breaker and retry policy (spec.md §2: "any call
// into an external collaborator ... is wrapped by the Error Recovery
// Fabric").
func (t *Table) callDeckOracle(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.deckBreaker.Allow() {
		metrics.RecordRetryAttempt("deck-oracle", "circuit-open")
		return recovery.ErrCircuitOpen
	}
	err := t.deckRetry.Do(ctx, fn)
	if err != nil {
		t.deckBreaker.RecordFailure()
		metrics.RecordRetryAttempt("deck-oracle", "failure")
		return err
	}
	t.deckBreaker.RecordSuccess()
	metrics.RecordRetryAttempt("deck-oracle", "success")
	return nil
}

// resetHandState clears all per-hand fields, ready for a fresh deal.
func (t *Table) resetHandState() {
	t.state.CommunityCards = nil
	t.state.CurrentBet = 0
	t.state.MinRaise = t.cfg.BigBlind
	t.state.Pot = 0
	t.state.SidePots = nil
	t.state.DeckHandle = ""
	t.state.ActedSinceAggro = make(map[int]bool)

	for _, p := range t.state.PlayersBySeat {
		p.Folded = false
		p.AllIn = false
		p.CurrentBetRound = 0
		p.TotalBetThisHand = 0
		p.HoleCards = nil
		p.LastAction = nil
	}
}

// startNewHand implements spec.md §4.3's dealing protocol: request a
// shuffled deck, post blinds, deal hole cards two rounds, and compute
// the pre-flop first-to-act seat (the seat after the big blind).
func (t *Table) startNewHand(ctx context.Context) {
	t.state.HandNumber++
	t.resetHandState()
	t.state.Phase = domain.PhasePreFlop
	t.handStartedAt = time.Now()
	metrics.RecordHandStarted(t.cfg.TableID)

	handle, _, err := t.requestShuffledDeck(ctx)
	if err != nil {
		t.failHandDeckUnavailable()
		return
	}
	t.state.DeckHandle = string(handle)

	t.emit(EventGameStarted, nil)

	t.collectBlinds()
	t.emit(EventBlindsPosted, nil)

	if err := t.dealHoleCards(ctx, handle); err != nil {
		t.failHandDeckUnavailable()
		return
	}
	t.emit(EventCardsDealt, nil)

	t.state.ToActSeat, _ = t.nextSeatFrom(t.state.BBSeat, true)
}

func (t *Table) requestShuffledDeck(ctx context.Context) (deck.Handle, deck.ShuffleProof, error) {
	var handle deck.Handle
	var proof deck.ShuffleProof
	err := t.callDeckOracle(ctx, func(ctx context.Context) error {
		h, p, err := t.deckClient.NewShuffledDeck(ctx, t.cfg.TableID)
		if err != nil {
			return err
		}
		handle, proof = h, p
		return nil
	})
	return handle, proof, err
}

// failHandDeckUnavailable implements spec.md §4.3's deck-oracle
// failure semantics: transition to FINISHED with cause DeckUnavailable
// and refund chips already committed to the pot pro rata (here, each
// contributor gets back exactly what they put in this hand, since
// no side-pot merging has happened yet at dealing time).
func (t *Table) failHandDeckUnavailable() {
	for _, p := range t.state.PlayersBySeat {
		p.Chips += p.TotalBetThisHand
		p.TotalBetThisHand = 0
		p.CurrentBetRound = 0
	}
	t.state.Pot = 0
	t.state.Phase = domain.PhaseFinished
	t.emit(EventGameEnded, "DeckUnavailable")
}

// dealHoleCards deals the table's variant's hole-card count to each
// seated, non-sitting-out player, one card per player per round
// (spec.md §4.3; hole-card count is the variant's, see variant.go).
func (t *Table) dealHoleCards(ctx context.Context, handle deck.Handle) error {
	seats := t.occupiedSeats()
	for round := 0; round < t.variant.HoleCards; round++ {
		for _, seat := range seats {
			p := t.state.PlayersBySeat[seat]
			if p.SittingOut || !p.Connected {
				continue
			}
			var cards []poker.Card
			err := t.callDeckOracle(ctx, func(ctx context.Context) error {
				c, err := t.deckClient.Deal(ctx, handle, 1)
				if err != nil {
					return err
				}
				cards = c
				return nil
			})
			if err != nil {
				return err
			}
			p.HoleCards = append(p.HoleCards, cards...)
		}
	}
	return nil
}

// collectBlinds posts the small and big blinds (spec.md §4.3): the SB
// seat posts min(sb, chips), the BB seat posts min(bb, chips); current
// bet becomes the big blind.
func (t *Table) collectBlinds() {
	dealerSeat := t.previousDealerOrZero()

	var sbSeat, bbSeat int
	var ok bool
	if t.countActionable() == 2 {
		// Heads-up: the dealer posts the small blind and acts first
		// pre-flop (spec.md §8 scenario S1).
		sbSeat = dealerSeat
		bbSeat, ok = t.nextSeatFrom(dealerSeat, true)
		if !ok {
			bbSeat = dealerSeat
		}
	} else {
		sbSeat, ok = t.nextSeatFrom(dealerSeat, true)
		if !ok {
			return
		}
		bbSeat, ok = t.nextSeatFrom(sbSeat, true)
		if !ok {
			bbSeat = sbSeat
		}
	}

	t.state.DealerSeat = dealerSeat
	t.state.SBSeat = sbSeat
	t.state.BBSeat = bbSeat

	sb := t.state.PlayersBySeat[sbSeat]
	sbAmount := t.cfg.SmallBlind
	if sb.Chips < sbAmount {
		sbAmount = sb.Chips
	}
	sb.Chips -= sbAmount
	sb.CurrentBetRound = sbAmount
	sb.TotalBetThisHand = sbAmount
	t.state.Pot += sbAmount

	bb := t.state.PlayersBySeat[bbSeat]
	bbAmount := t.cfg.BigBlind
	if bb.Chips < bbAmount {
		bbAmount = bb.Chips
		bb.AllIn = true
	}
	bb.Chips -= bbAmount
	bb.CurrentBetRound = bbAmount
	bb.TotalBetThisHand = bbAmount
	t.state.Pot += bbAmount

	t.state.CurrentBet = bbAmount
	t.state.MinRaise = t.cfg.BigBlind
}

func (t *Table) previousDealerOrZero() int {
	return t.state.DealerSeat
}

// completeBettingRound advances the hand to the next street, dealing
// community cards via the deck oracle, or to SHOWDOWN if the river is
// done or only one non-folded player remains.
func (t *Table) completeBettingRound(ctx context.Context) {
	if t.countNonFolded() <= 1 {
		t.state.Phase = domain.PhaseShowdown
		return
	}

	var nextPhase domain.GamePhase
	switch t.state.Phase {
	case domain.PhasePreFlop:
		nextPhase = domain.PhaseFlop
	case domain.PhaseFlop:
		nextPhase = domain.PhaseTurn
	case domain.PhaseTurn:
		nextPhase = domain.PhaseRiver
	case domain.PhaseRiver:
		t.state.Phase = domain.PhaseShowdown
		return
	default:
		return
	}
	dealCount := t.variant.StreetDealCounts[nextPhase]

	handle := deck.Handle(t.state.DeckHandle)
	if err := t.callDeckOracle(ctx, func(ctx context.Context) error {
		if _, err := t.deckClient.Burn(ctx, handle); err != nil {
			return err
		}
		cards, err := t.deckClient.Deal(ctx, handle, dealCount)
		if err != nil {
			return err
		}
		t.state.CommunityCards = append(t.state.CommunityCards, cards...)
		return nil
	}); err != nil {
		t.failHandDeckUnavailable()
		return
	}

	t.state.Phase = nextPhase
	t.state.CurrentBet = 0
	t.state.MinRaise = t.cfg.BigBlind
	t.state.ActedSinceAggro = make(map[int]bool)
	for _, p := range t.state.PlayersBySeat {
		p.CurrentBetRound = 0
	}
	t.state.ToActSeat, _ = t.nextSeatFrom(t.state.DealerSeat, true)

	t.emit(EventCommunityCardsDealt, CommunityCardsPayload{Phase: nextPhase.String(), Cards: cardStrings(t.state.CommunityCards)})
	t.emit(EventNewBettingRound, nil)
}

func (t *Table) countNonFolded() int {
	count := 0
	for _, p := range t.state.PlayersBySeat {
		if !p.Folded {
			count++
		}
	}
	return count
}

// advanceAfterHand rotates the dealer button and starts a new hand if
// enough actionable players remain, else returns the table to WAITING.
func (t *Table) advanceAfterHand(ctx context.Context) {
	t.state.DealerSeat, _ = t.nextSeatFrom(t.state.DealerSeat, false)

	if t.countActionable() >= minPlayersToStart {
		t.startNewHand(ctx)
		return
	}
	t.state.Phase = domain.PhaseWaiting
	t.emit(EventGameEnded, nil)
}

func (t *Table) handleAction(ctx context.Context, req domain.PlayerActionRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.synchronizer.RecordAction(req)

	player := t.findPlayer(req.PlayerID)

	// Below admin authority (players and dealers) an action is only
	// accepted on the actor's own turn; an admin authority acting on the
	// table's behalf (e.g. forcing a sit-out fold) bypasses the turn
	// check, per spec.md §4.4.
	if req.Authority < domain.RoleAdmin.AuthorityLevel() {
		if player == nil || player.Seat != t.state.ToActSeat {
			t.rejectAction(req, domain.NewActionError(domain.ErrNotYourTurn, "not your turn", domain.Hint{}))
			return
		}
	}

	if actionErr := t.bettingEngine.Validate(req, player, t.state, t.cfg); actionErr != nil {
		t.rejectAction(req, actionErr)
		return
	}

	res, err := t.bettingEngine.Execute(req, player, t.state, t.cfg)
	if err != nil {
		t.rejectAction(req, domain.NewActionError(domain.ErrIllegalAction, err.Error(), domain.Hint{}))
		return
	}

	kind := req.Kind.String()
	player.LastAction = &req.Kind
	metrics.RecordAction(t.cfg.TableID, kind)
	t.emit(EventActionPerformed, ActionPerformedPayload{
		PlayerID: req.PlayerID, Kind: kind, Amount: req.Amount, PotContribution: res.PotContribution,
	})

	if betting.RoundComplete(t.state) {
		return
	}
	if next, ok := t.nextSeatFrom(player.Seat, true); ok {
		t.state.ToActSeat = next
	}
}

// rejectAction publishes ACTION_REJECTED so the submitting client sees
// why its action did not apply, instead of the request silently
// vanishing (spec.md §6, §7).
func (t *Table) rejectAction(req domain.PlayerActionRequest, actionErr *domain.ActionError) {
	metrics.RecordAction(t.cfg.TableID, "rejected")
	t.emit(EventActionRejected, ActionRejectedPayload{
		PlayerID: req.PlayerID,
		Kind:     req.Kind.String(),
		Reason:   actionErr.Reason,
		Hints:    actionErr.Hints,
	})
}

func (t *Table) findPlayer(playerID string) *domain.Player {
	for _, p := range t.state.PlayersBySeat {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func cardStrings(cards []poker.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}
