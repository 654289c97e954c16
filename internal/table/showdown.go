package table

import (
	"sort"
	"time"

	"poker-platform/internal/betting"
	"poker-platform/internal/domain"
	"poker-platform/internal/metrics"
	"poker-platform/internal/poker"
)

// runShowdown implements spec.md §4.3's showdown: if only one
// non-folded player remains the whole pot goes to them uncontested;
// otherwise each pot (main + side) independently pays its best eligible
// hand, splitting ties evenly with any odd chip going to the first
// winner left of the dealer (the documented tie-break, spec.md §4.3 /
// DESIGN.md).
func (t *Table) runShowdown() {
	var winners []HandWinner
	outcome := "contested"

	if t.countNonFolded() <= 1 {
		winners = t.awardUncontested()
		outcome = "uncontested"
	} else {
		winners = t.awardContested()
	}

	t.state.Phase = domain.PhaseFinished
	metrics.RecordHandCompleted(t.cfg.TableID, outcome, time.Since(t.handStartedAt).Seconds())
	t.emit(EventHandCompleted, HandCompletedPayload{Winners: winners})
}

func (t *Table) awardUncontested() []HandWinner {
	for _, p := range t.state.PlayersBySeat {
		if !p.Folded {
			amount := t.state.Pot
			p.Chips += amount
			t.state.Pot = 0
			return []HandWinner{{PlayerID: p.ID, PotIndex: 0, Amount: amount}}
		}
	}
	return nil
}

func (t *Table) awardContested() []HandWinner {
	pots := betting.ComputeSidePots(t.state)
	var winners []HandWinner

	evaluations := make(map[string]*poker.HandEvaluation)
	for _, p := range t.state.PlayersBySeat {
		if p.Folded {
			continue
		}
		cards := append(append([]poker.Card{}, p.HoleCards...), t.state.CommunityCards...)
		eval, err := poker.Evaluate(cards)
		if err != nil {
			continue
		}
		evaluations[p.ID] = eval
	}

	orderedWinnerSeats := t.seatsLeftOfDealer()

	for potIndex, pot := range pots {
		bestIDs := bestHands(pot.Eligible, evaluations)
		if len(bestIDs) == 0 {
			continue
		}

		share := pot.Amount / int64(len(bestIDs))
		remainder := pot.Amount % int64(len(bestIDs))

		byID := make(map[string]bool, len(bestIDs))
		for _, id := range bestIDs {
			byID[id] = true
		}

		first := true
		for _, seat := range orderedWinnerSeats {
			p := t.state.PlayersBySeat[seat]
			if p == nil || !byID[p.ID] {
				continue
			}
			amount := share
			if first && remainder > 0 {
				amount += remainder
				first = false
			}
			p.Chips += amount
			winners = append(winners, HandWinner{
				PlayerID: p.ID, PotIndex: potIndex, Amount: amount, Ranking: evaluations[p.ID].Ranking.String(),
			})
		}
	}
	return winners
}

// bestHands returns the player ids among eligible with the
// maximum-ranking evaluation (possibly a multi-way tie).
func bestHands(eligible map[string]bool, evaluations map[string]*poker.HandEvaluation) []string {
	var best []string
	var bestEval *poker.HandEvaluation
	for id, ok := range eligible {
		if !ok {
			continue
		}
		eval, has := evaluations[id]
		if !has {
			continue
		}
		if bestEval == nil || poker.Compare(eval, bestEval) > 0 {
			bestEval = eval
			best = []string{id}
		} else if poker.Compare(eval, bestEval) == 0 {
			best = append(best, id)
		}
	}
	return best
}

// seatsLeftOfDealer returns occupied seats in dealer-relative order
// (first seat left of dealer, then around the table), used to assign
// an odd chip remainder deterministically.
func (t *Table) seatsLeftOfDealer() []int {
	seats := t.occupiedSeats()
	sort.Ints(seats)

	start := 0
	for i, s := range seats {
		if s == t.state.DealerSeat {
			start = i
			break
		}
	}

	ordered := make([]int, 0, len(seats))
	for i := 1; i <= len(seats); i++ {
		ordered = append(ordered, seats[(start+i)%len(seats)])
	}
	return ordered
}
