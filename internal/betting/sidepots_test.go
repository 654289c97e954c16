package betting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poker-platform/internal/domain"
)

// TestSidePotSplitScenario exercises S2 from spec.md §8: A=100 all-in,
// B=50 all-in, C=200 calls 100. Main pot 150 (A,B,C eligible), side
// pot 100 (A,C eligible).
func TestSidePotSplitScenario(t *testing.T) {
	a := &domain.Player{ID: "A", Seat: 0, TotalBetThisHand: 100}
	b := &domain.Player{ID: "B", Seat: 1, TotalBetThisHand: 50}
	c := &domain.Player{ID: "C", Seat: 2, TotalBetThisHand: 100}
	state := newTestState(a, b, c)

	pots := ComputeSidePots(state)
	require.Len(t, pots, 2)

	main := pots[0]
	assert.Equal(t, int64(150), main.Amount)
	assert.False(t, main.IsSide)
	assert.True(t, main.Eligible["A"])
	assert.True(t, main.Eligible["B"])
	assert.True(t, main.Eligible["C"])

	side := pots[1]
	assert.Equal(t, int64(100), side.Amount)
	assert.True(t, side.IsSide)
	assert.True(t, side.Eligible["A"])
	assert.True(t, side.Eligible["C"])
	assert.False(t, side.Eligible["B"])
}

func TestSidePotsCoalesceIdenticalEligibility(t *testing.T) {
	a := &domain.Player{ID: "A", Seat: 0, TotalBetThisHand: 100}
	b := &domain.Player{ID: "B", Seat: 1, TotalBetThisHand: 100}
	state := newTestState(a, b)

	pots := ComputeSidePots(state)
	require.Len(t, pots, 1)
	assert.Equal(t, int64(200), pots[0].Amount)
}

func TestSidePotsExcludeFoldedFromEligibility(t *testing.T) {
	a := &domain.Player{ID: "A", Seat: 0, TotalBetThisHand: 100, Folded: true}
	b := &domain.Player{ID: "B", Seat: 1, TotalBetThisHand: 100}
	state := newTestState(a, b)

	pots := ComputeSidePots(state)
	require.Len(t, pots, 1)
	assert.False(t, pots[0].Eligible["A"])
	assert.True(t, pots[0].Eligible["B"])
	assert.Equal(t, int64(200), pots[0].Amount)
}
