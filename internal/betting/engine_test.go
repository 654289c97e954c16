package betting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poker-platform/internal/domain"
)

func newTestState(players ...*domain.Player) *domain.TableState {
	bySeat := make(map[int]*domain.Player, len(players))
	for _, p := range players {
		bySeat[p.Seat] = p
	}
	return &domain.TableState{
		PlayersBySeat:   bySeat,
		MinRaise:        10,
		ActedSinceAggro: make(map[int]bool),
	}
}

func testCfg() domain.TableConfig {
	return domain.TableConfig{SmallBlind: 5, BigBlind: 10, MinBuyIn: 100, MaxBuyIn: 10000, MaxSeats: 9}
}

func TestCheckLegalWhenNoBet(t *testing.T) {
	p := &domain.Player{ID: "a", Seat: 0, Chips: 1000, Connected: true}
	state := newTestState(p)
	e := NewEngine()

	err := e.Validate(domain.PlayerActionRequest{PlayerID: "a", Kind: domain.ActionCheck}, p, state, testCfg())
	assert.Nil(t, err)

	actions := e.AvailableActions(p, state, testCfg())
	assert.Contains(t, actions, domain.ActionCheck)
	assert.NotContains(t, actions, domain.ActionCall)
}

func TestCannotCheckWithOutstandingBet(t *testing.T) {
	p := &domain.Player{ID: "a", Seat: 0, Chips: 1000, Connected: true}
	state := newTestState(p)
	state.CurrentBet = 20
	e := NewEngine()

	err := e.Validate(domain.PlayerActionRequest{PlayerID: "a", Kind: domain.ActionCheck}, p, state, testCfg())
	require.NotNil(t, err)
	assert.ErrorIs(t, err, domain.ErrIllegalAction)
	assert.Equal(t, int64(20), err.Hints.CallAmount)
}

func TestBetRequiresNoCurrentBet(t *testing.T) {
	p := &domain.Player{ID: "a", Seat: 0, Chips: 1000, Connected: true}
	state := newTestState(p)
	e := NewEngine()

	err := e.Validate(domain.PlayerActionRequest{PlayerID: "a", Kind: domain.ActionBet, Amount: 10}, p, state, testCfg())
	assert.Nil(t, err)

	err = e.Validate(domain.PlayerActionRequest{PlayerID: "a", Kind: domain.ActionBet, Amount: 5}, p, state, testCfg())
	require.NotNil(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRaiseMustMeetMinRaise(t *testing.T) {
	p := &domain.Player{ID: "a", Seat: 0, Chips: 1000, Connected: true}
	state := newTestState(p)
	state.CurrentBet = 20
	state.MinRaise = 20
	e := NewEngine()

	err := e.Validate(domain.PlayerActionRequest{PlayerID: "a", Kind: domain.ActionRaise, Amount: 30}, p, state, testCfg())
	require.NotNil(t, err)

	err = e.Validate(domain.PlayerActionRequest{PlayerID: "a", Kind: domain.ActionRaise, Amount: 40}, p, state, testCfg())
	assert.Nil(t, err)
}

func TestExecuteRaiseUpdatesMinRaiseAndReopens(t *testing.T) {
	a := &domain.Player{ID: "a", Seat: 0, Chips: 1000, Connected: true}
	b := &domain.Player{ID: "b", Seat: 1, Chips: 1000, Connected: true, CurrentBetRound: 20}
	state := newTestState(a, b)
	state.CurrentBet = 20
	state.MinRaise = 20
	state.ActedSinceAggro[1] = true
	e := NewEngine()

	res, err := e.Execute(domain.PlayerActionRequest{PlayerID: "a", Kind: domain.ActionRaise, Amount: 60}, a, state, testCfg())
	require.NoError(t, err)
	assert.Equal(t, int64(60), res.NextCurrentBet)
	assert.Equal(t, int64(60), res.PotContribution)
	assert.Equal(t, int64(40), state.MinRaise)
	assert.False(t, state.ActedSinceAggro[1], "raise should reopen action for the other player")
	assert.True(t, state.ActedSinceAggro[0])
}

func TestAvailableActionsMatchValidate(t *testing.T) {
	p := &domain.Player{ID: "a", Seat: 0, Chips: 1000, Connected: true}
	state := newTestState(p)
	state.CurrentBet = 20
	state.MinRaise = 20
	e := NewEngine()
	cfg := testCfg()

	actions := e.AvailableActions(p, state, cfg)
	for _, kind := range []domain.ActionKind{domain.ActionFold, domain.ActionCheck, domain.ActionCall, domain.ActionBet, domain.ActionRaise, domain.ActionAllIn} {
		amount := int64(0)
		if kind == domain.ActionRaise {
			amount = state.CurrentBet + state.MinRaise
		}
		if kind == domain.ActionBet {
			amount = cfg.BigBlind
		}
		err := e.Validate(domain.PlayerActionRequest{PlayerID: "a", Kind: kind, Amount: amount}, p, state, cfg)
		inAvailable := contains(actions, kind)
		assert.Equal(t, inAvailable, err == nil, "kind=%v available=%v err=%v", kind, inAvailable, err)
	}
}

func contains(kinds []domain.ActionKind, k domain.ActionKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

func TestValidationCacheEvictsOldestTenPercent(t *testing.T) {
	cache := newValidationCache(10)
	for i := 0; i < 11; i++ {
		cache.put(cacheKey{amount: int64(i)}, cacheEntry{})
	}
	assert.Equal(t, 10, cache.size())
	_, ok := cache.entries[cacheKey{amount: 0}]
	assert.False(t, ok, "oldest entry is evicted first")
}

func TestRoundCompleteSinglePlayerRemaining(t *testing.T) {
	a := &domain.Player{ID: "a", Seat: 0, Chips: 1000, Connected: true}
	b := &domain.Player{ID: "b", Seat: 1, Chips: 1000, Connected: true, Folded: true}
	state := newTestState(a, b)
	assert.True(t, RoundComplete(state))
}
