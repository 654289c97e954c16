package deck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	oracle, err := NewMemoryOracle()
	require.NoError(t, err)
	return NewClient(oracle)
}

func TestNewShuffledDeckProducesFullDeckViaDeal(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	handle, proof, err := c.NewShuffledDeck(ctx, "game-1")
	require.NoError(t, err)
	assert.NotEmpty(t, handle)
	assert.GreaterOrEqual(t, proof.EntropyBits, 256)
	assert.NotEqual(t, proof.OriginalHash, proof.ShuffledHash)

	seen := make(map[int]bool)
	for i := 0; i < 52; i++ {
		cards, err := c.Deal(ctx, handle, 1)
		require.NoError(t, err)
		require.Len(t, cards, 1)
		id := cards[0].ID()
		assert.False(t, seen[id], "card dealt twice")
		seen[id] = true
	}

	_, err = c.Deal(ctx, handle, 1)
	assert.Error(t, err, "dealing past the end of the deck must fail")
}

func TestBurnConsumesOneCard(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	handle, _, err := c.NewShuffledDeck(ctx, "game-2")
	require.NoError(t, err)

	burned, err := c.Burn(ctx, handle)
	require.NoError(t, err)

	rest, err := c.Deal(ctx, handle, 51)
	require.NoError(t, err)
	for _, card := range rest {
		assert.NotEqual(t, burned.ID(), card.ID())
	}
}

func TestDealAtomicOnInsufficientCards(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	handle, _, err := c.NewShuffledDeck(ctx, "game-3")
	require.NoError(t, err)

	_, err = c.Deal(ctx, handle, 50)
	require.NoError(t, err)

	_, err = c.Deal(ctx, handle, 5)
	require.Error(t, err)

	remaining, err := c.Deal(ctx, handle, 2)
	require.NoError(t, err, "a failed deal must not have consumed any cards")
	assert.Len(t, remaining, 2)
}

func TestVerifyRevealSucceedsForUntouchedDeck(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	handle, _, err := c.NewShuffledDeck(ctx, "game-4")
	require.NoError(t, err)

	err = c.VerifyReveal(ctx, handle, "game-4")
	assert.NoError(t, err)
}

func TestHistoryRecordsEachShuffle(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, _, err := c.NewShuffledDeck(ctx, "game-5")
	require.NoError(t, err)
	_, _, err = c.NewShuffledDeck(ctx, "game-6")
	require.NoError(t, err)

	history := c.History()
	require.Len(t, history, 2)
	assert.Equal(t, "game-5", history[0].GameID)
	assert.Equal(t, "game-6", history[1].GameID)
}
