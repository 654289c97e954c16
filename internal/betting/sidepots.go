package betting

import (
	"sort"

	"poker-platform/internal/domain"
)

// ComputeSidePots builds the main pot and any side pots from
// contributors' total_bet_this_hand, per spec.md §4.2: sort
// contributors by total invested ascending, and for each distinct bet
// level greater than the previous, create a pot of
// (level - previous_level) * (number of players contributing >= level),
// eligible to the non-folded contributors at that level. Pots with
// identical eligibility sets are coalesced.
func ComputeSidePots(state *domain.TableState) []domain.Pot {
	type contributor struct {
		seat     int
		playerID string
		invested int64
		folded   bool
	}

	var contributors []contributor
	for seat, p := range state.PlayersBySeat {
		if p == nil || p.TotalBetThisHand <= 0 {
			continue
		}
		contributors = append(contributors, contributor{seat: seat, playerID: p.ID, invested: p.TotalBetThisHand, folded: p.Folded})
	}
	if len(contributors) == 0 {
		return nil
	}

	sort.Slice(contributors, func(i, j int) bool { return contributors[i].invested < contributors[j].invested })

	var levels []int64
	seen := make(map[int64]bool)
	for _, c := range contributors {
		if !seen[c.invested] {
			seen[c.invested] = true
			levels = append(levels, c.invested)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []domain.Pot
	var previous int64
	for _, level := range levels {
		contributingCount := 0
		eligible := make(map[string]bool)
		for _, c := range contributors {
			if c.invested >= level {
				contributingCount++
			}
			if c.invested >= level && !c.folded {
				eligible[c.playerID] = true
			}
		}
		amount := (level - previous) * int64(contributingCount)
		previous = level
		if amount <= 0 || len(eligible) == 0 {
			continue
		}
		pots = append(pots, domain.Pot{Amount: amount, Eligible: eligible, IsSide: len(pots) > 0})
	}

	return coalescePots(pots)
}

func coalescePots(pots []domain.Pot) []domain.Pot {
	var merged []domain.Pot
	for _, pot := range pots {
		mergedInto := false
		for i := range merged {
			if sameEligibility(merged[i].Eligible, pot.Eligible) {
				merged[i].Amount += pot.Amount
				mergedInto = true
				break
			}
		}
		if !mergedInto {
			merged = append(merged, pot)
		}
	}
	return merged
}

func sameEligibility(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
