package table

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poker-platform/internal/deck"
	"poker-platform/internal/domain"
	"poker-platform/internal/recovery"
)

func newTestTable(t *testing.T, maxSeats int) *Table {
	t.Helper()
	cfg := domain.TableConfig{
		TableID:    "t1",
		GameType:   domain.GameTypeTexasHoldem,
		SmallBlind: 5,
		BigBlind:   10,
		MinBuyIn:   100,
		MaxBuyIn:   2000,
		MaxSeats:   maxSeats,
	}
	oracle, err := deck.NewMemoryOracle()
	require.NoError(t, err)
	return New(cfg, oracle, recovery.NewRegistry(nil))
}

// TestHeadsUpFoldEndsHandImmediately is spec.md scenario S1: heads-up,
// dealer (A) posts SB and acts first pre-flop; A folds and the hand
// ends immediately, B taking the whole pot uncontested.
func TestHeadsUpFoldEndsHandImmediately(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t, 2)

	require.NoError(t, tbl.PlayerJoins("A", 1000))
	require.NoError(t, tbl.PlayerJoins("B", 1000))

	tbl.startNewHand(ctx)

	require.Equal(t, domain.PhasePreFlop, tbl.state.Phase)
	assert.Equal(t, 0, tbl.state.DealerSeat)
	assert.Equal(t, 0, tbl.state.SBSeat, "heads-up: dealer posts the small blind")
	assert.Equal(t, 1, tbl.state.BBSeat)
	assert.Equal(t, 0, tbl.state.ToActSeat, "heads-up: dealer/SB acts first pre-flop")
	assert.EqualValues(t, 15, tbl.state.Pot)
	assert.EqualValues(t, 995, tbl.state.PlayersBySeat[0].Chips)
	assert.EqualValues(t, 990, tbl.state.PlayersBySeat[1].Chips)

	tbl.handleAction(ctx, domain.PlayerActionRequest{
		PlayerID: "A",
		Kind:     domain.ActionFold,
		Role:     domain.RolePlayer,
		Authority: domain.RolePlayer.AuthorityLevel(),
	})
	assert.True(t, tbl.state.PlayersBySeat[0].Folded)

	// Fold leaves one non-folded player: the round, and the hand, end
	// immediately (invariant: no further streets are dealt).
	tbl.tick(ctx)
	require.Equal(t, domain.PhaseShowdown, tbl.state.Phase)
	assert.Empty(t, tbl.state.CommunityCards, "no community cards are dealt once only one player remains")

	tbl.tick(ctx)
	require.Equal(t, domain.PhaseFinished, tbl.state.Phase)

	assert.EqualValues(t, 0, tbl.state.Pot)
	assert.EqualValues(t, 995, tbl.state.PlayersBySeat[0].Chips, "A: posted SB=5, lost the hand")
	assert.EqualValues(t, 1005, tbl.state.PlayersBySeat[1].Chips, "B: posted BB=10, won the 15-chip pot")
}

func TestPlayerJoinsRejectsWhenTableFull(t *testing.T) {
	tbl := newTestTable(t, 1)
	require.NoError(t, tbl.PlayerJoins("A", 1000))
	assert.ErrorIs(t, tbl.PlayerJoins("B", 1000), ErrTableFull)
}

func TestPlayerJoinsReconnectsExistingSeat(t *testing.T) {
	tbl := newTestTable(t, 2)
	require.NoError(t, tbl.PlayerJoins("A", 1000))
	require.NoError(t, tbl.PlayerLeaves("A"))
	assert.False(t, tbl.state.PlayersBySeat[0].Connected)

	require.NoError(t, tbl.PlayerJoins("A", 1000))
	assert.True(t, tbl.state.PlayersBySeat[0].Connected)
	assert.Len(t, tbl.state.PlayersBySeat, 1, "reconnect must not take a second seat")
}

// TestThreeHandedBettingRoundAdvancesToFlop checks that a completed
// pre-flop betting round with three non-folded players deals the flop
// and resets per-round betting state (spec.md §4.3).
func TestThreeHandedBettingRoundAdvancesToFlop(t *testing.T) {
	ctx := context.Background()
	tbl := newTestTable(t, 3)

	require.NoError(t, tbl.PlayerJoins("A", 1000))
	require.NoError(t, tbl.PlayerJoins("B", 1000))
	require.NoError(t, tbl.PlayerJoins("C", 1000))

	tbl.startNewHand(ctx)
	require.Equal(t, domain.PhasePreFlop, tbl.state.Phase)

	toAct := tbl.state.ToActSeat
	player := tbl.state.PlayersBySeat[toAct]
	tbl.handleAction(ctx, domain.PlayerActionRequest{PlayerID: player.ID, Kind: domain.ActionCall, Role: domain.RolePlayer, Authority: 1})

	toAct = tbl.state.ToActSeat
	player = tbl.state.PlayersBySeat[toAct]
	tbl.handleAction(ctx, domain.PlayerActionRequest{PlayerID: player.ID, Kind: domain.ActionCall, Role: domain.RolePlayer, Authority: 1})

	toAct = tbl.state.ToActSeat
	player = tbl.state.PlayersBySeat[toAct]
	tbl.handleAction(ctx, domain.PlayerActionRequest{PlayerID: player.ID, Kind: domain.ActionCheck, Role: domain.RolePlayer, Authority: 1})

	tbl.tick(ctx)
	require.Equal(t, domain.PhaseFlop, tbl.state.Phase)
	assert.Len(t, tbl.state.CommunityCards, 3)
	assert.EqualValues(t, 0, tbl.state.CurrentBet)
}
