package table

import "poker-platform/internal/domain"

// VariantSpec parameterizes the dealing protocol by game type: how many
// hole cards each player gets, and how many community cards are dealt
// on entering each street. Texas Hold'em is the only variant spec.md
// fully specifies (§1 scope); this registry is the seam SPEC_FULL.md
// documents for adding another `domain.GameType` without touching the
// phase loop in phases.go, grounded on the teacher's
// `rules.EngineRegistry`/`CreateEngine` switch
// (internal/game/rules/registry.go) generalized from a per-variant
// rules-engine implementation to a per-variant dealing-parameter table,
// since this repo does not reimplement Omaha/stud rules.
type VariantSpec struct {
	HoleCards        int
	StreetDealCounts map[domain.GamePhase]int
}

var variantRegistry = map[domain.GameType]VariantSpec{
	domain.GameTypeTexasHoldem: {
		HoleCards: 2,
		StreetDealCounts: map[domain.GamePhase]int{
			domain.PhaseFlop:  3,
			domain.PhaseTurn:  1,
			domain.PhaseRiver: 1,
		},
	},
}

// variantFor looks up gt's dealing parameters, falling back to Texas
// Hold'em's when gt names an unregistered variant.
func variantFor(gt domain.GameType) VariantSpec {
	if v, ok := variantRegistry[gt]; ok {
		return v
	}
	return variantRegistry[domain.GameTypeTexasHoldem]
}
